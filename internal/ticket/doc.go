// Package ticket provides the business boundary for helpdesk's support ticket
// pipeline. It defines the Service (input validation, serialized runs,
// notifications), Engine (the classify/retrieve/draft/review state machine),
// the collaborator interfaces it drives, and the domain models.
package ticket
