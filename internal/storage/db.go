/**
 * Storage Interface.
 *
 * Defines the contract for persistence layers, allowing the pipeline to
 * support multiple storage backends interchangeably. Persistence is an
 * optional sidecar to the CSV artifacts: the signature bank and match
 * verdicts survive across runs for querying.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package storage

import "github.com/kleaSCM/iotscope/internal/models"

// Defines the interface for persisting fingerprinting results.
type Storage interface {
	// Lifecycle
	Close() error
	Migrate() error

	// Signatures
	SaveSignature(sig *models.Signature) error
	GetSignature(device, session string) (*models.Signature, error)
	ListSignatures() ([]*models.Signature, error)

	// Match results
	SaveMatchResult(run, captureName, device string, matched bool) error
	ListMatchResults(run string) ([]MatchResult, error)
}

// One persisted match verdict.
type MatchResult struct {
	Run     string
	Capture string
	Device  string
	Matched bool
}
