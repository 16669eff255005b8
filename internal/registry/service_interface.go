package registry

// Service is a long-running part of the agent. Start must not block;
// Stop waits for the service's goroutines to exit.
type Service interface {
	Start() error
	Stop() error
}
