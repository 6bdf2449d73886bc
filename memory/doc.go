// Package memory persists the single active conversation.
//
// Persistence model:
//   - Messages are append-only and immutable once written; Reset drops the whole log.
//   - Append is all-or-nothing per batch. The log as a whole is not transactional.
//   - Ordering is created_at ascending, with the per-store insertion sequence as the tiebreaker.
//   - Stores assume a single writer; concurrent processes sharing one file are unsupported.
package memory
