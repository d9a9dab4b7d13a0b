package email

// Provider sends transactional mail. Delivery is best-effort everywhere it
// is used; a failed send never fails the triggering operation.
type Provider interface {
	Send(to, subject, body string) error
}

// NoopProvider is used when email is disabled in config.
type NoopProvider struct{}

func (NoopProvider) Send(to, subject, body string) error {
	return nil
}
