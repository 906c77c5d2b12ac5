package core

import "github.com/docker/go-units"

const S3_MULTIPART_MAX_PARTS = 9500
const S3_MULTIPART_MIN_PART_SIZE = uint64(5 * units.MiB)

// Canonical artifact names produced by the pipeline stages.
const (
	ARTIFACT_SPARSE_MODEL     = "sparse.zip"
	ARTIFACT_TRAINED_MODEL    = "model.ply"
	ARTIFACT_COMPRESSED_MODEL = "sogs.zip"
)

// Exit codes. Generally, you should NOT automatically restart the
// process if the exit code is ExitCodeFailedStartup (1).
const (
	ExitCodeSuccess = iota
	ExitCodeFailedStartup
	ExitCodeForceQuit
	ExitCodeFailedQuit
)
