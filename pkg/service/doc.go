// Package service runs a complete LwM2M client device.
//
// # DeviceService
//
// DeviceService wires the lower-level packages together:
//   - a model.Registry holding /1/1, /3/0 and /3303/0
//   - a content.Negotiator answering server reads on the CoAP socket
//   - a registration.Manager driving REGISTER, periodic UPDATE and DEREGISTER
//   - a connection.Supervisor re-registering with backoff when the
//     registration is lost or rejected
//   - a sensor.Sampler refreshing the temperature resources
//   - an optional periodic SEND of the temperature to /dp as SenML
//
// Example usage:
//
//	config := service.DefaultDeviceConfig()
//	config.ServerAddress = "leshan.example.org:5683"
//	config.Endpoint = "dev1"
//
//	svc, err := service.NewDeviceService(config, sensor.NewRandomWalk(sensor.WalkConfig{}))
//	svc.OnEvent(func(e service.Event) { ... })
//	svc.Start(ctx)
//	defer svc.Stop()
//
// Stop deregisters, best effort, before closing the socket.
package service
