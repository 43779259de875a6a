// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and the stores
// defined in internal/store to fulfill application features.
//
// Key components:
//
// 1. TaskService:
//   - Task lifecycle (create, read, list, update, delete) with role checks from domain/policy
//   - Every mutation and its audit entry share one store transaction
//   - Assignment notifications are dispatched after commit and never fail the mutation
//
// 2. RecurrenceService:
//   - Materializes the next occurrence of completed recurring tasks
//   - Each task is claimed and copied in its own transaction
//
// 3. NotificationService:
//   - Persists per-user notifications and pushes them to the realtime gateway
//
// 4. AuditService:
//   - Age-based purge of the audit ledger
//
// Services receive dependencies through constructor injection and depend on
// store interfaces, never on a specific database implementation.
package service
