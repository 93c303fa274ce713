// Package gatewaysdk is a client SDK for IoT devices connecting to a
// message-bus gateway over WebSocket. It speaks a small JSON envelope
// protocol over a subject-tree namespace (dot-delimited, with "*" and ">"
// wildcards) and manages the connection lifecycle: authentication,
// reconnect with capped exponential backoff, heartbeat liveness, and
// subscription re-establishment after a reconnect.
//
// # Connecting
//
//	client := gatewaysdk.NewClient(
//	    gatewaysdk.WithGatewayURL("wss://gateway.example.com/v1/connect"),
//	    gatewaysdk.WithDeviceID("sensor-42"),
//	    gatewaysdk.WithAuthToken("s3cr3t"),
//	    gatewaysdk.WithDeviceType(gatewaysdk.DeviceSensor),
//	)
//
//	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
//	defer cancel()
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
// # Publishing and subscribing
//
//	client.Subscribe("telemetry.sensor-42.>", func(subject string, env gatewaysdk.Envelope) {
//	    // handle inbound message
//	})
//
//	err := client.Publish("telemetry.sensor-42.temperature", map[string]float64{"celsius": 21.5})
//
// # Driving the engine
//
// The client is single-threaded internally: a polling goroutine drains
// transport events, advances timers, and fires callbacks. Either call
// Poll from your own loop, or let the client manage it:
//
//	client.RunAsync(ctx)
//	defer client.Stop()
//
// # Subject wildcards
//
// Subjects are dot-delimited tokens. A subscribe pattern may use "*" to
// match exactly one token, and ">" to match one or more trailing tokens
// (only legal as the final token of a pattern). See Matches.
//
// # Configuration from a file
//
// Deployments managing a device fleet can load options from YAML instead
// of Go code:
//
//	opts, err := gatewaysdk.LoadConfigFile("device.yaml")
//	client := gatewaysdk.NewClient(opts...)
package gatewaysdk
