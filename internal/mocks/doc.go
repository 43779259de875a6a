// Package mocks provides centralized fakes for testing.
//
// MemoryStore is an in-memory implementation of every store interface plus a
// Transactor that restores a snapshot when the transaction function fails, so
// services can be tested for atomicity without a database. The remaining
// mocks follow the function-field pattern: set XFn to override behaviour and
// inspect the recorded calls afterwards.
//
//	ms := mocks.NewMemoryStore()
//	ms.AddUser(admin)
//	ms.CreateAuditFn = func(ctx context.Context, e *domain.AuditLogEntry) error {
//	    return errors.New("disk full")
//	}
package mocks
