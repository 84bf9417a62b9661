package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/admin-console/internal/events"
	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

const defaultDiscussionCategory = "general"

type discussionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewDiscussionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) DiscussionService {
	return &discussionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *discussionService) List(ctx context.Context, params models.ListDiscussionsParams) ([]*models.Discussion, error) {
	if params.Category != nil && !models.IsDiscussionCategory(*params.Category) {
		return nil, NewValidationError("category", "is not a known category", *params.Category)
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, NewValidationError("status", "must be open or closed", *params.Status)
	}

	discussions, err := s.repo.Discussion().List(ctx, nil, repositories.DiscussionFilters{
		Category: params.Category,
		Status:   params.Status,
		Search:   params.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	return discussions, nil
}

func (s *discussionService) Get(ctx context.Context, id string) (*DiscussionDetail, error) {
	discussion, err := s.repo.Discussion().GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "discussion")
	}

	replies, err := s.repo.Discussion().ListReplies(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	discussion.ReplyCount = int64(len(replies))

	return &DiscussionDetail{Discussion: discussion, Replies: replies}, nil
}

func (s *discussionService) Create(ctx context.Context, actor *models.Profile, req *DiscussionCreateRequest) (*models.Discussion, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	category := req.Category
	if category == "" {
		category = defaultDiscussionCategory
	}

	discussion := &models.Discussion{
		Title:      req.Title,
		Content:    req.Content,
		AuthorID:   actor.ID,
		AuthorName: actor.DisplayName(),
		AuthorRole: actor.EffectiveRole(),
		Category:   category,
		Status:     models.DiscussionOpen,
	}

	if err := s.repo.Discussion().Create(ctx, nil, discussion); err != nil {
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}

	s.logger.Info("Discussion created",
		"discussion_id", discussion.ID,
		"author_id", actor.ID,
		"category", category)

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.EventDiscussionCreated, actor.ID, map[string]any{
		"discussion_id": discussion.ID,
		"title":         discussion.Title,
		"category":      category,
	}))

	return discussion, nil
}

// Reply appends to an open discussion
func (s *discussionService) Reply(ctx context.Context, actor *models.Profile, id string, req *DiscussionReplyRequest) (*models.DiscussionReply, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	discussion, err := s.repo.Discussion().GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "discussion")
	}
	if discussion.Status == models.DiscussionClosed {
		return nil, NewBusinessRuleError("discussion_closed", "closed discussions do not accept replies", map[string]any{
			"discussion_id": id,
		})
	}

	reply := &models.DiscussionReply{
		DiscussionID: id,
		Content:      req.Content,
		AuthorID:     actor.ID,
		AuthorName:   actor.DisplayName(),
		AuthorRole:   actor.EffectiveRole(),
	}

	if err := s.repo.Discussion().CreateReply(ctx, nil, reply); err != nil {
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}

	s.logger.Info("Discussion reply created",
		"discussion_id", id,
		"reply_id", reply.ID,
		"author_id", actor.ID)

	return reply, nil
}

// SetStatus closes or reopens a discussion. Authors and admins may do this.
func (s *discussionService) SetStatus(ctx context.Context, actor *models.Profile, id string, req *DiscussionStatusRequest) (*models.Discussion, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	discussion, err := s.repo.Discussion().GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "discussion")
	}
	if discussion.AuthorID != actor.ID && !isAdmin(actor) {
		return nil, NewPermissionError(actor.ID, id, "discussion", "change status", "not author or administrator")
	}
	if discussion.Status == req.Status {
		return discussion, nil
	}

	if err := s.repo.Discussion().UpdateStatus(ctx, nil, id, req.Status); err != nil {
		return nil, fmt.Errorf("failed to update discussion status: %w", err)
	}
	discussion.Status = req.Status

	s.logger.Info("Discussion status changed",
		"discussion_id", id,
		"status", req.Status,
		"actor_id", actor.ID)

	return discussion, nil
}
