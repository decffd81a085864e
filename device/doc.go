// Package device derives the device identity sent with every auth request.
//
// The device id is a version-4 UUID generated once per installation and
// persisted under the device_id key. The device type is recomputed from the
// user-agent string on every call and never persisted.
package device
