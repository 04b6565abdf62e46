package db

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
)

// documentLockKey derives a stable advisory-lock key for a document id.
func documentLockKey(documentID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(documentID[:])
	return int64(h.Sum64())
}

// TryDocumentLock attempts to take a session advisory lock for documentID on
// the workspace connection carried by ctx. It returns false when another
// populate run already holds the lock. The lock is released when the
// connection is released back to the pool, which the workspace middleware
// does at end of request.
func TryDocumentLock(ctx context.Context, documentID uuid.UUID) (bool, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return false, fmt.Errorf("no workspace connection on context")
	}
	var acquired bool
	err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, documentLockKey(documentID)).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("acquire document lock: %w", err)
	}
	return acquired, nil
}

// ReleaseDocumentLock releases the advisory lock for documentID, if held.
func ReleaseDocumentLock(ctx context.Context, documentID uuid.UUID) error {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return nil
	}
	_, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, documentLockKey(documentID))
	return err
}
