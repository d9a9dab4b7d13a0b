package services

// ServiceContainer bundles every service for handler wiring.
type ServiceContainer struct {
	Auth          AuthService
	Jobs          JobService
	Proposals     ProposalService
	Escrow        EscrowService
	Notifications NotificationService
}
