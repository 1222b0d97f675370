// Package service provides typed facades over store.IStore, one per entity
// kind, plus account management, credit reports and cache preloading.
//
// The services own the entity rules the store does not know about:
//
//   - ids (random UUIDs) and createdAt/updatedAt stamps
//   - required fields, failing with store.RetCValidationFailed
//   - records can only be created for callsigns with a profile
//   - status transitions stamp approvedAt, rejectedAt, confirmedAt and
//     completedAt the first time the status is reached
//   - deleting an application rejects it, deleting an exam or activity
//     completes it as failed; attachments and users are removed for real
//
// Profiles returned by Users never carry the secret.
//
// Records are found by id through the store index (FindOwner). Updates and
// deletes of unknown ids fail with store.RetCNotFound, reads return nil.
package service
