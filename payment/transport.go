package payment

// HostTransport is the message-passing boundary to the wallet host.
// Send is fire-and-forget: responses, if any, arrive later on the shared
// Messages channel.
type HostTransport interface {
	Send(req Request) error
	Messages() <-chan Message
}

// CapabilityReporter is implemented by transports that can describe the
// host's payment paths.
type CapabilityReporter interface {
	Capabilities() Capabilities
}

// HostCapabilities probes the transport. Transports without a reporter
// are assumed to support native payments only.
func HostCapabilities(t HostTransport) Capabilities {
	if r, ok := t.(CapabilityReporter); ok {
		return r.Capabilities()
	}
	return Capabilities{NativePayments: true}
}
