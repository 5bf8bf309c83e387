package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// metadataBatchSize bounds one community batch request
const metadataBatchSize = 100

// identifierLister is the slice of the identifier repository this job
// needs.
type identifierLister interface {
	ListCanonicalIDs(ctx context.Context) ([]string, error)
	PutMetadata(ctx context.Context, canonicalID string, meta contracts.Metadata) error
}

// CommunitySyncJob refreshes the local metadata of every known
// canonical id from the community service, so enrichment keeps
// answering from the local cache between runs.
type CommunitySyncJob struct {
	identifiers identifierLister
	community   contracts.CommunityService
	logger      *logger.Logger
}

func NewCommunitySyncJob(identifiers identifierLister, community contracts.CommunityService, log *logger.Logger) *CommunitySyncJob {
	return &CommunitySyncJob{
		identifiers: identifiers,
		community:   community,
		logger:      log,
	}
}

func (j *CommunitySyncJob) Name() string {
	return "community_sync"
}

// Schedule runs at 04:00 nightly, after the pipeline job
func (j *CommunitySyncJob) Schedule() string {
	return "0 0 4 * * *"
}

func (j *CommunitySyncJob) Run(ctx context.Context) error {
	ids, err := j.identifiers.ListCanonicalIDs(ctx)
	if err != nil {
		return fmt.Errorf("list canonical ids: %w", err)
	}
	if len(ids) == 0 {
		j.logger.Info("No known identifiers to sync")
		return nil
	}

	updated := 0
	for start := 0; start < len(ids); start += metadataBatchSize {
		end := min(start+metadataBatchSize, len(ids))

		batch, err := j.community.GetMetadataBatch(ctx, ids[start:end])
		if err != nil {
			j.logger.WithError(err).Warn("Community metadata batch failed")
			continue
		}

		for id, meta := range batch {
			if meta.IsEmpty() {
				continue
			}
			if err := j.identifiers.PutMetadata(ctx, id, meta); err != nil {
				j.logger.WithError(err).WithField("canonical_id", id).Warn("Metadata write failed")
				continue
			}
			updated++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"known":   len(ids),
		"updated": updated,
	}).Info("Community metadata sync finished")
	return nil
}
