package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// Object key layout. Everything a job produces lives under its own
// prefix so a canceled or failed job can be cleaned up with a single
// prefix delete.
//
//	projects/<projectID>/uploads/<token>/<name>
//	jobs/<jobUUID>/<stage>/<name>

func UploadKey(projectID uint, token string, name string) string {
	return fmt.Sprintf("projects/%d/uploads/%s/%s", projectID, token, name)
}

func JobPrefix(jobUUID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/", jobUUID)
}

func JobStageKey(jobUUID uuid.UUID, stage string, name string) string {
	return fmt.Sprintf("jobs/%s/%s/%s", jobUUID, stage, name)
}
