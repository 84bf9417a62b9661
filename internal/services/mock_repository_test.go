package services

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockRepository keeps every table in memory. It covers the lookups the
// services perform, not full query semantics.
type mockRepository struct {
	mu sync.Mutex

	profiles    map[string]*models.Profile
	courses     map[string]*models.Course
	assignments map[string]*models.Assignment
	submissions map[string]*models.Submission
	messages    map[string]*models.Message
	discussions map[string]*models.Discussion
	replies     []*models.DiscussionReply
	counters    map[string]models.SubmissionCounters
	activities  []repositories.RecentActivityData

	graded, successful int64
	threshold          float64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		profiles:    map[string]*models.Profile{},
		courses:     map[string]*models.Course{},
		assignments: map[string]*models.Assignment{},
		submissions: map[string]*models.Submission{},
		messages:    map[string]*models.Message{},
		discussions: map[string]*models.Discussion{},
		counters:    map[string]models.SubmissionCounters{},
	}
}

func (m *mockRepository) addProfile(id, name string, role models.UserRole) *models.Profile {
	p := &models.Profile{ID: id, FullName: name, Role: role}
	m.profiles[id] = p
	return p
}

func (m *mockRepository) Profile() repositories.ProfileRepository       { return mockProfiles{m} }
func (m *mockRepository) Course() repositories.CourseRepository         { return mockCourses{m} }
func (m *mockRepository) Assignment() repositories.AssignmentRepository { return mockAssignments{m} }
func (m *mockRepository) Submission() repositories.SubmissionRepository { return mockSubmissions{m} }
func (m *mockRepository) Message() repositories.MessageRepository       { return mockMessages{m} }
func (m *mockRepository) Discussion() repositories.DiscussionRepository { return mockDiscussions{m} }
func (m *mockRepository) Dashboard() repositories.DashboardRepository   { return mockDashboard{m} }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

// ===== profiles =====

type mockProfiles struct{ m *mockRepository }

func (r mockProfiles) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.profiles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyOf(p), nil
}

func (r mockProfiles) Reload(ctx context.Context, tx *gorm.DB, id string) (*models.Profile, error) {
	return r.GetByID(ctx, tx, id)
}

func (r mockProfiles) CreateIfAbsent(_ context.Context, _ *gorm.DB, profile *models.Profile) (*models.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if p, ok := r.m.profiles[profile.ID]; ok {
		return copyOf(p), nil
	}
	r.m.profiles[profile.ID] = copyOf(profile)
	return copyOf(profile), nil
}

func (r mockProfiles) Update(_ context.Context, _ *gorm.DB, profile *models.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.profiles[profile.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.m.profiles[profile.ID] = copyOf(profile)
	return nil
}

func (r mockProfiles) List(_ context.Context, _ *gorm.DB, filters repositories.ProfileFilters) ([]*models.Profile, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Profile
	for _, p := range r.m.profiles {
		if filters.Role != nil && p.Role != *filters.Role {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(p.FullName), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, copyOf(p))
	}
	slices.SortFunc(out, func(a, b *models.Profile) int { return strings.Compare(a.FullName, b.FullName) })
	total := int64(len(out))
	return paginate(out, filters.Limit, filters.Offset), total, nil
}

func (r mockProfiles) ListNamed(ctx context.Context, tx *gorm.DB) ([]*models.Profile, error) {
	all, _, _ := r.List(ctx, tx, repositories.ProfileFilters{})
	return slices.DeleteFunc(all, func(p *models.Profile) bool { return p.FullName == "" }), nil
}

func (r mockProfiles) CountByRole(_ context.Context, _ *gorm.DB) (map[models.UserRole]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	counts := map[models.UserRole]int64{}
	for _, p := range r.m.profiles {
		counts[p.Role]++
	}
	return counts, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ===== courses =====

type mockCourses struct{ m *mockRepository }

func (r mockCourses) Create(_ context.Context, _ *gorm.DB, course *models.Course) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	r.m.courses[course.ID] = copyOf(course)
	return nil
}

func (r mockCourses) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.Course, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.courses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyOf(c), nil
}

func (r mockCourses) Update(_ context.Context, _ *gorm.DB, course *models.Course) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.courses[course.ID] = copyOf(course)
	return nil
}

func (r mockCourses) Delete(_ context.Context, _ *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.courses, id)
	return nil
}

func (r mockCourses) List(_ context.Context, _ *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Course
	for _, c := range r.m.courses {
		if filters.Status != nil && c.Status != *filters.Status {
			continue
		}
		out = append(out, copyOf(c))
	}
	slices.SortFunc(out, func(a, b *models.Course) int { return strings.Compare(a.Title, b.Title) })
	total := int64(len(out))
	return paginate(out, filters.Limit, filters.Offset), total, nil
}

func (r mockCourses) ExistsByID(_ context.Context, _ *gorm.DB, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.courses[id]
	return ok, nil
}

// ===== assignments and submissions =====

type mockAssignments struct{ m *mockRepository }

func (r mockAssignments) Create(_ context.Context, _ *gorm.DB, a *models.Assignment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	r.m.assignments[a.ID] = copyOf(a)
	return nil
}

func (r mockAssignments) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.Assignment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.assignments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyOf(a), nil
}

func (r mockAssignments) Update(_ context.Context, _ *gorm.DB, a *models.Assignment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.assignments[a.ID] = copyOf(a)
	return nil
}

func (r mockAssignments) Delete(_ context.Context, _ *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.assignments, id)
	return nil
}

func (r mockAssignments) List(_ context.Context, _ *gorm.DB, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Assignment
	for _, a := range r.m.assignments {
		if filters.CourseID != nil && a.CourseID != *filters.CourseID {
			continue
		}
		if filters.Type != nil && a.Type != *filters.Type {
			continue
		}
		out = append(out, copyOf(a))
	}
	slices.SortFunc(out, func(a, b *models.Assignment) int { return strings.Compare(a.ID, b.ID) })
	total := int64(len(out))
	return paginate(out, filters.Limit, filters.Offset), total, nil
}

func (r mockAssignments) GetCounters(_ context.Context, _ *gorm.DB, ids []string) (map[string]models.SubmissionCounters, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make(map[string]models.SubmissionCounters, len(ids))
	for _, id := range ids {
		c := r.m.counters[id]
		c.AssignmentID = id
		out[id] = c
	}
	return out, nil
}

type mockSubmissions struct{ m *mockRepository }

func (r mockSubmissions) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.Submission, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.submissions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyOf(s), nil
}

func (r mockSubmissions) ListByAssignment(_ context.Context, _ *gorm.DB, assignmentID string) ([]*models.Submission, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Submission
	for _, s := range r.m.submissions {
		if s.AssignmentID == assignmentID {
			out = append(out, copyOf(s))
		}
	}
	return out, nil
}

func (r mockSubmissions) Grade(_ context.Context, _ *gorm.DB, s *models.Submission) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.submissions[s.ID] = copyOf(s)
	return nil
}

// ===== messages =====

type mockMessages struct{ m *mockRepository }

func (r mockMessages) Create(_ context.Context, _ *gorm.DB, msg *models.Message) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	r.m.messages[msg.ID] = copyOf(msg)
	return nil
}

func (r mockMessages) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.Message, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	msg, ok := r.m.messages[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyOf(msg), nil
}

func (r mockMessages) ListForUser(_ context.Context, _ *gorm.DB, userID string, box *models.MessageBox) ([]*models.UserMessage, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.UserMessage
	for _, msg := range r.m.messages {
		switch {
		case msg.RecipientID == userID && (box == nil || *box == models.BoxInbox):
			out = append(out, &models.UserMessage{Message: *msg, Type: models.BoxInbox})
		case msg.SenderID == userID && (box == nil || *box == models.BoxSent):
			out = append(out, &models.UserMessage{Message: *msg, Type: models.BoxSent})
		}
	}
	return out, nil
}

func (r mockMessages) MarkRead(_ context.Context, _ *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.messages[id].Read = true
	return nil
}

func (r mockMessages) Delete(_ context.Context, _ *gorm.DB, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.messages, id)
	return nil
}

// ===== discussions =====

type mockDiscussions struct{ m *mockRepository }

func (r mockDiscussions) Create(_ context.Context, _ *gorm.DB, d *models.Discussion) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	r.m.discussions[d.ID] = copyOf(d)
	return nil
}

func (r mockDiscussions) GetByID(_ context.Context, _ *gorm.DB, id string) (*models.Discussion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.discussions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyOf(d), nil
}

func (r mockDiscussions) List(_ context.Context, _ *gorm.DB, filters repositories.DiscussionFilters) ([]*models.Discussion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Discussion
	for _, d := range r.m.discussions {
		if filters.Status != nil && d.Status != *filters.Status {
			continue
		}
		out = append(out, copyOf(d))
	}
	return out, nil
}

func (r mockDiscussions) UpdateStatus(_ context.Context, _ *gorm.DB, id string, status models.DiscussionStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.discussions[id].Status = status
	return nil
}

func (r mockDiscussions) ListReplies(_ context.Context, _ *gorm.DB, discussionID string) ([]*models.DiscussionReply, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.DiscussionReply
	for _, reply := range r.m.replies {
		if reply.DiscussionID == discussionID {
			out = append(out, copyOf(reply))
		}
	}
	return out, nil
}

func (r mockDiscussions) CreateReply(_ context.Context, _ *gorm.DB, reply *models.DiscussionReply) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	reply.CreatedAt = time.Now()
	r.m.replies = append(r.m.replies, copyOf(reply))
	if d, ok := r.m.discussions[reply.DiscussionID]; ok {
		d.LastActivityAt = reply.CreatedAt
	}
	return nil
}

// ===== dashboard =====

type mockDashboard struct{ m *mockRepository }

func (r mockDashboard) CountCoursesByStatus(_ context.Context, _ *gorm.DB, status models.PublishStatus) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, c := range r.m.courses {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}

func (r mockDashboard) CountAssignments(_ context.Context, _ *gorm.DB) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return int64(len(r.m.assignments)), nil
}

func (r mockDashboard) CountSubmissionsByStatus(_ context.Context, _ *gorm.DB, statuses ...models.SubmissionStatus) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, s := range r.m.submissions {
		if slices.Contains(statuses, s.Status) {
			n++
		}
	}
	return n, nil
}

func (r mockDashboard) GradedOutcome(_ context.Context, _ *gorm.DB, threshold float64) (int64, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.threshold = threshold
	return r.m.graded, r.m.successful, nil
}

func (r mockDashboard) GetRecentActivities(_ context.Context, _ *gorm.DB, limit int) ([]repositories.RecentActivityData, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return paginate(slices.Clone(r.m.activities), limit, 0), nil
}
