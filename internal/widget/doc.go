// Package widget binds dashboard widgets to device metrics.
//
// A Binding names one (device, metric key) pair and whether the widget may
// write. The Resolver turns a binding into a Display read from the telemetry
// cache, or into a CommandMessage for a user action; the Publisher sends
// that message on the device's cmd topic.
//
//	res := widget.NewResolver(cache)
//	fmt.Println(res.ResolveDisplay(*w.Binding)) // "22" or "—"
//
//	cmd, err := res.ResolveCommand(*w.Binding, true, time.Now())
//	if err != nil {
//	    return err // ErrReadOnlyBinding, ErrInvalidValue
//	}
//	_, err = pub.Publish(ctx, w.Binding.DeviceID, cmd) // ErrNotConnected, ErrRateLimited
//
// The cache is the only source of displayed values. A value the user just
// set is not written back; it appears once the device reports it.
package widget
