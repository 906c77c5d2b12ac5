package core

import (
	"context"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
)

const PROJECT_SERVICE = "project"

type ProjectService interface {
	CreateProject(ctx context.Context, ownerID uint, name string, description string) (*models.Project, error)
	GetProject(ctx context.Context, id uint) (*models.Project, error)
	ListProjects(ctx context.Context, ownerID uint) ([]models.Project, error)

	// CreateUpload records an uploaded photo set after its objects have
	// landed in the bucket.
	CreateUpload(ctx context.Context, upload *models.Upload) error
	GetUpload(ctx context.Context, id uint) (*models.Upload, error)

	Service
}
