package devbackend

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskmaster/console/internal/domain/entities"
)

type userRecord struct {
	entities.User
	PasswordHash string
}

type document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Store is the in-memory data set behind the stand-in backend. Lists come
// back newest first, like the real one.
type Store struct {
	mu            sync.RWMutex
	seq           map[string]int
	users         map[string]*userRecord
	projects      map[string]*entities.Project
	tasks         map[string]*entities.Task
	notifications map[string]*entities.Notification
	documents     map[string]document
	revoked       map[string]time.Time
	created       map[string]int
	now           func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		seq:           make(map[string]int),
		users:         make(map[string]*userRecord),
		projects:      make(map[string]*entities.Project),
		tasks:         make(map[string]*entities.Task),
		notifications: make(map[string]*entities.Notification),
		documents:     make(map[string]document),
		revoked:       make(map[string]time.Time),
		created:       make(map[string]int),
		now:           now,
	}
}

// nextID hands out USR-001 style ids. Caller holds the lock.
func (s *Store) nextID(prefix string) string {
	s.seq[prefix]++
	id := fmt.Sprintf("%s-%03d", prefix, s.seq[prefix])
	s.created[id] = len(s.created)
	return id
}

func (s *Store) newestFirst(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return s.created[ids[i]] > s.created[ids[j]] })
}

// Users

func (s *Store) CreateUser(u entities.User, passwordHash string) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, errConflict("user with email %s already exists", u.Email)
		}
	}
	u.ID = s.nextID("USR")
	u.CreatedAt = s.now()
	s.users[u.ID] = &userRecord{User: u, PasswordHash: passwordHash}
	out := u
	return &out, nil
}

func (s *Store) GetUser(id string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	out := rec.User
	return &out, nil
}

func (s *Store) userByEmail(email string) (*userRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.users {
		if strings.EqualFold(rec.Email, email) {
			cp := *rec
			return &cp, true
		}
	}
	return nil, false
}

func (s *Store) ListUsers() []entities.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.newestFirst(ids)
	out := make([]entities.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.users[id].User)
	}
	return out
}

func (s *Store) UpdateUser(id string, fn func(u *entities.User, hash *string) error) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	u, hash := rec.User, rec.PasswordHash
	if err := fn(&u, &hash); err != nil {
		return nil, err
	}
	for otherID, other := range s.users {
		if otherID != id && strings.EqualFold(other.Email, u.Email) {
			return nil, errConflict("user with email %s already exists", u.Email)
		}
	}
	rec.User, rec.PasswordHash = u, hash
	out := u
	return &out, nil
}

// Projects

func (s *Store) CreateProject(p entities.Project, doc *document) *entities.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID("PRJ")
	if p.Members == nil {
		p.Members = []entities.ProjectMember{}
	}
	if doc != nil {
		name := doc.Filename
		p.DocumentName = &name
		s.documents[p.ID] = *doc
	}
	s.projects[p.ID] = &p
	out := cloneProject(&p)
	return &out
}

func (s *Store) GetProject(id string) (*entities.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, entities.ErrProjectNotFound
	}
	out := cloneProject(p)
	return &out, nil
}

// ListProjects returns every project when userID is empty, else the ones
// userID is a member of.
func (s *Store) ListProjects(userID string) []entities.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.projects))
	for id, p := range s.projects {
		if userID == "" || p.HasMember(userID) {
			ids = append(ids, id)
		}
	}
	s.newestFirst(ids)
	out := make([]entities.Project, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneProject(s.projects[id]))
	}
	return out
}

func (s *Store) UpdateProject(id string, fn func(p *entities.Project) error) (*entities.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, entities.ErrProjectNotFound
	}
	next := cloneProject(p)
	if err := fn(&next); err != nil {
		return nil, err
	}
	*p = next
	out := cloneProject(p)
	return &out, nil
}

// DeleteProject removes a project with its tasks, document and offers.
func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return entities.ErrProjectNotFound
	}
	delete(s.projects, id)
	delete(s.documents, id)
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	for nid, n := range s.notifications {
		if n.ProjectID == id && n.IsPending() {
			delete(s.notifications, nid)
		}
	}
	return nil
}

// Document returns the file uploaded with a project, if any.
func (s *Store) Document(projectID string) (document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[projectID]
	return doc, ok
}

func (s *Store) AddMember(projectID string, member entities.ProjectMember) (*entities.Project, error) {
	return s.UpdateProject(projectID, func(p *entities.Project) error {
		if p.HasMember(member.UserID) {
			return errConflict("user %s is already a member", member.UserID)
		}
		p.Members = append(p.Members, member)
		return nil
	})
}

func cloneProject(p *entities.Project) entities.Project {
	out := *p
	out.Members = append([]entities.ProjectMember{}, p.Members...)
	return out
}

// Tasks

func (s *Store) CreateTask(t entities.Task) (*entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[t.ProjectID]; !ok {
		return nil, entities.ErrProjectNotFound
	}
	t.ID = s.nextID("TSK")
	t.CreatedAt = s.now()
	s.tasks[t.ID] = &t
	out := t
	return &out, nil
}

func (s *Store) GetTask(id string) (*entities.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	out := *t
	return &out, nil
}

func (s *Store) ListProjectTasks(projectID string) []entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for id, t := range s.tasks {
		if t.ProjectID == projectID {
			ids = append(ids, id)
		}
	}
	s.newestFirst(ids)
	out := make([]entities.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.tasks[id])
	}
	return out
}

func (s *Store) UpdateTask(id string, fn func(t *entities.Task) error) (*entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	next := *t
	if err := fn(&next); err != nil {
		return nil, err
	}
	*t = next
	out := next
	return &out, nil
}

func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return entities.ErrTaskNotFound
	}
	delete(s.tasks, id)
	for nid, n := range s.notifications {
		if n.TaskID == id && n.IsPending() {
			delete(s.notifications, nid)
		}
	}
	return nil
}

// Notifications

func (s *Store) CreateNotification(n entities.Notification) *entities.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID("NTF")
	n.CreatedAt = s.now()
	s.notifications[n.ID] = &n
	out := n
	return &out
}

func (s *Store) GetNotification(id string) (*entities.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, errNotFound("notification not found")
	}
	out := *n
	return &out, nil
}

// ListNotifications returns the notifications addressed to receiverID that
// pass keep.
func (s *Store) ListNotifications(receiverID string, keep func(*entities.Notification) bool) []entities.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0)
	for id, n := range s.notifications {
		if n.ReceiverID == receiverID && (keep == nil || keep(n)) {
			ids = append(ids, id)
		}
	}
	s.newestFirst(ids)
	out := make([]entities.Notification, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.notifications[id])
	}
	return out
}

// ResolveNotification moves a pending offer to its final status. The check
// and the write happen under one lock so two answers cannot both win.
func (s *Store) ResolveNotification(id string, to entities.NotificationStatus) (*entities.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, errNotFound("notification not found")
	}
	if err := n.CanTransition(to); err != nil {
		return nil, err
	}
	n.Status = to
	out := *n
	return &out, nil
}

// Tokens

func (s *Store) Revoke(tokenID string, until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = until
	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
}

func (s *Store) IsRevoked(tokenID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[tokenID]
	return ok
}
