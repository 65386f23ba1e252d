package properties

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/storage"
	"github.com/camazac/realty/internal/validation"
)

// ImageRemover deletes the blob behind an image reference.
type ImageRemover interface {
	Remove(ctx context.Context, ref string) error
}

// Service applies property mutations and the image cleanup they imply.
type Service struct {
	logger     *slog.Logger
	properties storage.PropertyStorage
	images     ImageRemover
	now        func() time.Time
}

// NewService создает сервис объектов недвижимости
func NewService(logger *slog.Logger, properties storage.PropertyStorage, images ImageRemover) *Service {
	return &Service{
		logger:     logger,
		properties: properties,
		images:     images,
		now:        time.Now,
	}
}

// Create stores a new property with 1..MaxPropertyImages uploaded images.
func (s *Service) Create(ctx context.Context, form validation.PropertyForm, uploaded []string) (*models.Property, error) {
	if err := checkImageCount(len(uploaded)); err != nil {
		return nil, err
	}

	now := s.now()
	property := &models.Property{
		ID:          uuid.New().String(),
		Title:       form.Title,
		Description: form.Description,
		Address:     form.Address,
		Price:       form.Price,
		Type:        form.Type,
		Images:      append([]string(nil), uploaded...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.properties.CreateProperty(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	s.logger.InfoContext(ctx, "property created",
		slog.String("property_id", property.ID),
		slog.Int("images", len(property.Images)),
	)

	return property, nil
}

// Get returns a property or storage.ErrPropertyNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.Property, error) {
	return s.properties.GetProperty(ctx, id)
}

// List returns all properties, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Property, error) {
	return s.properties.ListProperties(ctx)
}

// Update replaces the property fields and reconciles its images.
// The record is persisted before any orphaned image is removed.
func (s *Service) Update(ctx context.Context, id string, form validation.PropertyForm, keep, uploaded []string) (*models.Property, error) {
	property, err := s.properties.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	plan, err := Reconcile(property.Images, keep, uploaded)
	if err != nil {
		return nil, err
	}

	property.Title = form.Title
	property.Description = form.Description
	property.Address = form.Address
	property.Price = form.Price
	property.Type = form.Type
	property.Images = plan.Final
	property.UpdatedAt = s.now()

	if err := s.properties.UpdateProperty(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}

	s.logger.InfoContext(ctx, "property updated",
		slog.String("property_id", property.ID),
		slog.Int("images", len(plan.Final)),
		slog.Int("orphaned", len(plan.Orphaned)),
	)

	s.removeImages(ctx, property.ID, plan.Orphaned)

	return property, nil
}

// Delete removes every image of the property, then the property itself.
func (s *Service) Delete(ctx context.Context, id string) error {
	property, err := s.properties.GetProperty(ctx, id)
	if err != nil {
		return err
	}

	s.removeImages(ctx, property.ID, property.Images)

	if err := s.properties.DeleteProperty(ctx, id); err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}

	s.logger.InfoContext(ctx, "property deleted", slog.String("property_id", id))

	return nil
}

// removeImages удаляет файлы по одному; ошибки логируются и не прерывают операцию
func (s *Service) removeImages(ctx context.Context, propertyID string, refs []string) {
	for _, ref := range refs {
		if err := s.images.Remove(ctx, ref); err != nil {
			s.logger.WarnContext(ctx, "failed to remove image",
				slog.String("property_id", propertyID),
				slog.String("ref", ref),
				slog.Any("error", err),
			)
		}
	}
}
