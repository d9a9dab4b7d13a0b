package models

type UserRole string
type JobStatus string
type MessageType string
type TransactionStatus string

const (
	UserRoleCustomer     UserRole = "customer"
	UserRoleTradesperson UserRole = "tradesperson"
	UserRoleAdmin        UserRole = "admin"

	JobStatusOpen       JobStatus = "open"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"

	MessageTypeText        MessageType = "text"
	MessageTypeAppointment MessageType = "appointment"
	MessageTypeSystem      MessageType = "system"

	TransactionStatusSuccess  TransactionStatus = "success"
	TransactionStatusFailed   TransactionStatus = "failed"
	TransactionStatusRefunded TransactionStatus = "refunded"
)
