package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"go.lumeweb.com/httputil"
	"go.uber.org/zap"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/middleware"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/pipeline"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/service"
)

const APIName = "spaceport"

var _ core.API = (*SpaceportAPI)(nil)
var _ core.APIInit = (*SpaceportAPI)(nil)

func init() {
	core.RegisterAPI(APIName, &SpaceportAPI{})
}

type SpaceportAPI struct {
	ctx      core.Context
	logger   *core.Logger
	user     core.UserService
	project  core.ProjectService
	pipeline core.PipelineService
	storage  core.StorageService
}

func (a *SpaceportAPI) Name() string {
	return APIName
}

func (a *SpaceportAPI) Init(ctx core.Context) ([]core.ContextBuilderOption, error) {
	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			a.ctx = ctx
			a.logger = ctx.Logger().Named("api")
			a.user = core.GetService[core.UserService](ctx, core.USER_SERVICE)
			a.project = core.GetService[core.ProjectService](ctx, core.PROJECT_SERVICE)
			a.pipeline = core.GetService[core.PipelineService](ctx, core.PIPELINE_SERVICE)
			a.storage = core.GetService[core.StorageService](ctx, core.STORAGE_SERVICE)
			return nil
		}),
	)

	return opts, nil
}

func (a *SpaceportAPI) Configure(router *mux.Router) error {
	authMw := middleware.AuthMiddleware(middleware.AuthMiddlewareOptions{
		Context: a.ctx,
		Purpose: core.JWTPurposeLogin,
	})

	router.HandleFunc("/auth/register", a.registerHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", a.loginHandler).Methods(http.MethodPost)

	projects := router.PathPrefix("/projects").Subrouter()
	projects.Use(authMw)
	projects.HandleFunc("", a.createProjectHandler).Methods(http.MethodPost)
	projects.HandleFunc("", a.listProjectsHandler).Methods(http.MethodGet)
	projects.HandleFunc("/{id:[0-9]+}", a.getProjectHandler).Methods(http.MethodGet)

	uploads := router.PathPrefix("/uploads").Subrouter()
	uploads.Use(authMw)
	uploads.HandleFunc("", a.uploadHandler).Methods(http.MethodPost)

	jobs := router.PathPrefix("/jobs").Subrouter()
	jobs.Use(authMw)
	jobs.HandleFunc("", a.startJobHandler).Methods(http.MethodPost)
	jobs.HandleFunc("/{uuid}", a.jobStatusHandler).Methods(http.MethodGet)
	jobs.HandleFunc("/{uuid}/stop", a.stopJobHandler).Methods(http.MethodPost)

	return nil
}

func (a *SpaceportAPI) registerHandler(w http.ResponseWriter, r *http.Request) {
	ctx := httputil.Context(r, w)

	var req RegisterRequest
	if err := ctx.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Email == "" || len(req.Password) < 8 {
		http.Error(w, "email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	if _, err := a.user.CreateAccount(req.Email, req.Password); err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		a.logger.Error("failed to create account", zap.Error(err))
		http.Error(w, "failed to create account", http.StatusInternalServerError)
		return
	}

	token, _, err := a.user.LoginPassword(req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx.Encode(&LoginResponse{Token: token})
}

func (a *SpaceportAPI) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := httputil.Context(r, w)

	var req LoginRequest
	if err := ctx.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, _, err := a.user.LoginPassword(req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	ctx.Encode(&LoginResponse{Token: token})
}

func (a *SpaceportAPI) createProjectHandler(w http.ResponseWriter, r *http.Request) {
	ctx := httputil.Context(r, w)

	userID, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req CreateProjectRequest
	if err = ctx.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	project, err := a.project.CreateProject(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		a.logger.Error("failed to create project", zap.Error(err))
		http.Error(w, "failed to create project", http.StatusInternalServerError)
		return
	}

	ctx.Encode(projectResponse(project))
}

func (a *SpaceportAPI) listProjectsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := httputil.Context(r, w)

	userID, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	projects, err := a.project.ListProjects(r.Context(), userID)
	if err != nil {
		a.logger.Error("failed to list projects", zap.Error(err))
		http.Error(w, "failed to list projects", http.StatusInternalServerError)
		return
	}

	out := make([]*ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, projectResponse(&projects[i]))
	}

	ctx.Encode(out)
}

func (a *SpaceportAPI) getProjectHandler(w http.ResponseWriter, r *http.Request) {
	ctx := httputil.Context(r, w)

	userID, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	project, err := a.project.GetProject(r.Context(), uint(id))
	if err != nil || project.UserID != userID {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}

	ctx.Encode(projectResponse(project))
}

func (a *SpaceportAPI) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := httputil.Context(r, w)

	userID, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	limit := int64(a.ctx.Config().Config().Core.PostUploadLimit)
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err = r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart request", http.StatusBadRequest)
		return
	}

	projectID, err := strconv.ParseUint(r.FormValue("project_id"), 10, 64)
	if err != nil {
		http.Error(w, "project_id is required", http.StatusBadRequest)
		return
	}

	project, err := a.project.GetProject(r.Context(), uint(projectID))
	if err != nil || project.UserID != userID {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}

	photos, photosHeader, err := r.FormFile("photos")
	if err != nil {
		http.Error(w, "photos file is required", http.StatusBadRequest)
		return
	}
	defer photos.Close()

	token := uuid.NewString()

	zipKey := pipeline.UploadKey(project.ID, token, "photos.zip")
	info, err := a.storage.UploadObject(r.Context(), zipKey, photos, uint64(photosHeader.Size))
	if err != nil {
		a.logger.Error("failed to store photo archive", zap.Error(err))
		http.Error(w, "failed to store photo archive", http.StatusInternalServerError)
		return
	}

	gpsKey := ""
	if gps, gpsHeader, gpsErr := r.FormFile("gps_csv"); gpsErr == nil {
		defer gps.Close()

		// Reject malformed flight logs before they reach the pipeline.
		if _, parseErr := pipeline.ParseGPSCSV(gps); parseErr != nil {
			http.Error(w, "invalid gps csv: "+parseErr.Error(), http.StatusBadRequest)
			return
		}
		if _, seekErr := gps.Seek(0, 0); seekErr != nil {
			http.Error(w, seekErr.Error(), http.StatusInternalServerError)
			return
		}

		gpsKey = pipeline.UploadKey(project.ID, token, "flight_log.csv")
		if _, err = a.storage.UploadObject(r.Context(), gpsKey, gps, uint64(gpsHeader.Size)); err != nil {
			a.logger.Error("failed to store gps csv", zap.Error(err))
			http.Error(w, "failed to store gps csv", http.StatusInternalServerError)
			return
		}
	}

	upload := &models.Upload{
		UserID:     userID,
		ProjectID:  project.ID,
		ZipKey:     zipKey,
		GpsCsvKey:  gpsKey,
		Size:       uint64(photosHeader.Size),
		MimeType:   info.MimeType,
		UploaderIP: r.RemoteAddr,
	}

	if err = a.project.CreateUpload(r.Context(), upload); err != nil {
		a.logger.Error("failed to record upload", zap.Error(err))
		http.Error(w, "failed to record upload", http.StatusInternalServerError)
		return
	}

	ctx.Encode(&UploadResponse{
		ID:        upload.ID,
		ProjectID: upload.ProjectID,
		ZipKey:    upload.ZipKey,
		GpsCsvKey: upload.GpsCsvKey,
		Size:      upload.Size,
	})
}

func (a *SpaceportAPI) startJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := httputil.Context(r, w)

	userID, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req StartJobRequest
	if err = ctx.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	project, err := a.project.GetProject(r.Context(), req.ProjectID)
	if err != nil || project.UserID != userID {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}

	uploadID := req.UploadID
	if uploadID == 0 && req.ZipURL != "" {
		upload, resolveErr := a.resolveExternalUpload(r, userID, project.ID, req)
		if resolveErr != nil {
			http.Error(w, resolveErr.Error(), http.StatusBadRequest)
			return
		}
		uploadID = upload.ID
	}

	job, err := a.pipeline.StartJob(r.Context(), core.StartJobRequest{
		ProjectID: req.ProjectID,
		UploadID:  uploadID,
		Email:     req.Email,
		Overrides: req.Params,
	})
	if err != nil {
		if errors.Is(err, service.ErrUploadNotFound) || errors.Is(err, service.ErrUploadMismatch) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var paramErr *pipeline.ParamError
		if errors.As(err, &paramErr) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		a.logger.Error("failed to start job", zap.Error(err))
		http.Error(w, "failed to start job", http.StatusInternalServerError)
		return
	}

	ctx.Encode(&StartJobResponse{
		UUID:   uuid.UUID(job.UUID).String(),
		Status: string(job.Status),
	})
}

func (a *SpaceportAPI) stopJobHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	job, ok := a.loadOwnedJob(w, r, userID)
	if !ok {
		return
	}

	if err = a.pipeline.StopJob(r.Context(), uuid.UUID(job.UUID)); err != nil {
		if errors.Is(err, service.ErrJobNotActive) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		a.logger.Error("failed to stop job", zap.Error(err))
		http.Error(w, "failed to stop job", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *SpaceportAPI) jobStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := httputil.Context(r, w)

	userID, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	job, ok := a.loadOwnedJob(w, r, userID)
	if !ok {
		return
	}

	resp := &JobStatusResponse{
		UUID:       uuid.UUID(job.UUID).String(),
		ProjectID:  job.ProjectID,
		Status:     string(job.Status),
		Error:      job.Error,
		Params:     json.RawMessage(job.Params),
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}

	resp.StageRuns = lo.Map(job.StageRuns, func(run models.StageRun, _ int) StageRunResponse {
		return StageRunResponse{
			Stage:      run.Stage,
			Attempt:    run.Attempt,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Success:    run.Success,
			Error:      run.Error,
			Metrics:    json.RawMessage(run.Metrics),
		}
	})

	if job.Status == models.JobStatusComplete {
		jobUUID := uuid.UUID(job.UUID)
		resp.Artifacts = map[string]string{
			"sparse_model":     pipeline.JobStageKey(jobUUID, string(models.JobStatusSfm), core.ARTIFACT_SPARSE_MODEL),
			"trained_model":    pipeline.JobStageKey(jobUUID, string(models.JobStatusTraining), core.ARTIFACT_TRAINED_MODEL),
			"compressed_model": pipeline.JobStageKey(jobUUID, string(models.JobStatusCompressing), core.ARTIFACT_COMPRESSED_MODEL),
		}
	}

	ctx.Encode(resp)
}

// resolveExternalUpload records an Upload row for a photo archive that
// already lives in the bucket, referenced by object key or s3:// URL.
func (a *SpaceportAPI) resolveExternalUpload(r *http.Request, userID uint, projectID uint, req StartJobRequest) (*models.Upload, error) {
	bucket := a.ctx.Config().Config().Core.Storage.S3.Bucket

	zipKey, err := objectKeyFromURL(bucket, req.ZipURL)
	if err != nil {
		return nil, err
	}

	exists, err := a.storage.ObjectExists(r.Context(), zipKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("object %s does not exist", zipKey)
	}

	gpsKey := ""
	if req.GpsCsvURL != "" {
		if gpsKey, err = objectKeyFromURL(bucket, req.GpsCsvURL); err != nil {
			return nil, err
		}

		if exists, err = a.storage.ObjectExists(r.Context(), gpsKey); err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("object %s does not exist", gpsKey)
		}
	}

	upload := &models.Upload{
		UserID:     userID,
		ProjectID:  projectID,
		ZipKey:     zipKey,
		GpsCsvKey:  gpsKey,
		UploaderIP: r.RemoteAddr,
	}
	if err = a.project.CreateUpload(r.Context(), upload); err != nil {
		return nil, err
	}

	return upload, nil
}

// objectKeyFromURL accepts a bare object key or an s3://bucket/key URL
// pointing at the configured bucket.
func objectKeyFromURL(bucket, raw string) (string, error) {
	if strings.HasPrefix(raw, "s3://") {
		bucketPart, key, found := strings.Cut(strings.TrimPrefix(raw, "s3://"), "/")
		if !found || key == "" {
			return "", errors.New("malformed s3 url")
		}
		if bucketPart != bucket {
			return "", fmt.Errorf("bucket %s is not served by this portal", bucketPart)
		}

		return key, nil
	}

	if raw == "" {
		return "", errors.New("empty object reference")
	}

	return raw, nil
}

func (a *SpaceportAPI) loadOwnedJob(w http.ResponseWriter, r *http.Request, userID uint) (*models.ReconstructionJob, bool) {
	jobUUID, err := uuid.Parse(mux.Vars(r)["uuid"])
	if err != nil {
		http.Error(w, "invalid job uuid", http.StatusBadRequest)
		return nil, false
	}

	job, err := a.pipeline.GetJob(r.Context(), jobUUID)
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return nil, false
	}

	if job.Project.UserID != userID {
		http.Error(w, "job not found", http.StatusNotFound)
		return nil, false
	}

	return job, true
}

func projectResponse(project *models.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		CreatedAt:   project.CreatedAt,
	}
}
