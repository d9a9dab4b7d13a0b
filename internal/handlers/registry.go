package handlers

import "kaamsetu_backend/internal/services"

// AppHandlers groups every HTTP handler for route registration.
type AppHandlers struct {
	Auth          *AuthHandler
	Jobs          *JobHandler
	Proposals     *ProposalHandler
	Notifications *NotificationHandler
}

func NewAppHandlers(container *services.ServiceContainer) *AppHandlers {
	return &AppHandlers{
		Auth:          NewAuthHandler(container.Auth),
		Jobs:          NewJobHandler(container.Jobs, container.Escrow),
		Proposals:     NewProposalHandler(container.Proposals),
		Notifications: NewNotificationHandler(container.Notifications),
	}
}
