package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/event"
)

var _ core.ProjectService = (*ProjectServiceDefault)(nil)

var ErrProjectNotFound = errors.New("project not found")
var ErrUploadNotFound = errors.New("upload not found")

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.PROJECT_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewProjectService()
		},
	})
}

type ProjectServiceDefault struct {
	ctx core.Context
	db  *gorm.DB
}

func NewProjectService() (*ProjectServiceDefault, []core.ContextBuilderOption, error) {
	project := &ProjectServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			project.ctx = ctx
			project.db = ctx.DB()
			return nil
		}),
	)

	return project, opts, nil
}

func (p *ProjectServiceDefault) ID() string {
	return core.PROJECT_SERVICE
}

func (p *ProjectServiceDefault) CreateProject(ctx context.Context, ownerID uint, name string, description string) (*models.Project, error) {
	project := &models.Project{
		UserID:      ownerID,
		Name:        name,
		Description: description,
	}

	if err := db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.Create(project)
	}); err != nil {
		return nil, err
	}

	return project, nil
}

func (p *ProjectServiceDefault) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project

	err := db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.Preload("Uploads").Preload("Jobs").First(&project, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	return &project, nil
}

func (p *ProjectServiceDefault) ListProjects(ctx context.Context, ownerID uint) ([]models.Project, error) {
	var projects []models.Project

	err := db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.Where(&models.Project{UserID: ownerID}).Order("created_at desc").Find(&projects)
	})
	if err != nil {
		return nil, err
	}

	return projects, nil
}

func (p *ProjectServiceDefault) CreateUpload(ctx context.Context, upload *models.Upload) error {
	if err := db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.Create(upload)
	}); err != nil {
		return err
	}

	return event.FireUploadCompletedEvent(p.ctx, upload)
}

func (p *ProjectServiceDefault) GetUpload(ctx context.Context, id uint) (*models.Upload, error) {
	var upload models.Upload

	err := db.RetryOnLock(p.db.WithContext(ctx), func(tx *gorm.DB) *gorm.DB {
		return tx.First(&upload, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}

	return &upload, nil
}
