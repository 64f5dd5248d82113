// Package model wraps an optional pretrained object-detection network as a
// third candidate source for the pipeline.
//
// The network is described by three files in a configured directory:
// model.onnx (weights), model.json (tensor names and layout) and
// classes.txt (class name list). Their presence is probed exactly once at
// process start. If anything is missing or fails to load, New returns a
// no-op detector that always reports zero candidates — soft degradation,
// not an error. ModelUnavailable is deliberately not an error type this
// repository has.
//
// The loaded session is read-only after initialization and is shared by
// concurrent pipeline invocations without locking. A forward pass is
// bounded by a timeout; expiry counts as "learned detector unavailable for
// this request" and yields zero candidates.
package model
