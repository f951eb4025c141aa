// Package healthcheck exposes the controller state over the standard gRPC
// health protocol (grpc.health.v1).
//
// The gpufan service reports NOT_SERVING until fans are taken over, SERVING
// while they are controlled and NOT_SERVING again once control is released.
package healthcheck
