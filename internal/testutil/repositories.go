package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/repository"
	"github.com/mailgrove/mailgrove/internal/utils"
)

// store is a shared in-memory backing for all repository doubles, so
// cross-repository queries (search over bodies, attachment checks) see
// one consistent dataset.
type store struct {
	mu            sync.Mutex
	emails        map[string]*models.Email
	conversations map[string]*models.Conversation
	orphans       map[string]*models.OrphanEmail
	quarantined   map[string]*models.QuarantinedEmail
	syncStates    map[string]*models.SyncState
	attachments   map[string]*models.EmailAttachment
}

// NewRepositories returns a Repositories wired entirely with in-memory
// implementations that mirror the SQL layer's semantics: duplicate
// absorption on email create, unread clamping in the aggregate delta,
// nil results for not-found lookups.
func NewRepositories() *repository.Repositories {
	s := &store{
		emails:        make(map[string]*models.Email),
		conversations: make(map[string]*models.Conversation),
		orphans:       make(map[string]*models.OrphanEmail),
		quarantined:   make(map[string]*models.QuarantinedEmail),
		syncStates:    make(map[string]*models.SyncState),
		attachments:   make(map[string]*models.EmailAttachment),
	}
	return &repository.Repositories{
		EmailRepository:           &emailRepo{s: s},
		ConversationRepository:    &conversationRepo{s: s},
		OrphanEmailRepository:     &orphanRepo{s: s},
		QuarantineRepository:      &quarantineRepo{s: s},
		SyncStateRepository:       &syncStateRepo{s: s},
		EmailAttachmentRepository: &attachmentRepo{s: s},
	}
}

func copyEmail(e *models.Email) *models.Email {
	c := *e
	return &c
}

func copyConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	if c.LastMessageAt != nil {
		t := *c.LastMessageAt
		cp.LastMessageAt = &t
	}
	if c.FirstMessageAt != nil {
		t := *c.FirstMessageAt
		cp.FirstMessageAt = &t
	}
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp
}

// emailRepo

type emailRepo struct {
	s *store
}

func (r *emailRepo) Create(ctx context.Context, email *models.Email) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if email == nil || email.UserID == "" {
		return "", repository.ErrInvalidInput
	}
	if email.MessageID != "" {
		email.MessageID = utils.NormalizeMessageID(email.MessageID)
	}
	if email.Subject != "" {
		email.CleanSubject = utils.NormalizeSubject(email.Subject)
	}
	for _, existing := range r.s.emails {
		if existing.UserID == email.UserID && existing.MessageID == email.MessageID {
			return existing.ID, nil
		}
	}
	if email.ID == "" {
		email.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	email.CreatedAt = utils.Now()
	r.s.emails[email.ID] = copyEmail(email)
	return email.ID, nil
}

func (r *emailRepo) GetByID(ctx context.Context, id string) (*models.Email, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.emails[id]; ok {
		return copyEmail(e), nil
	}
	return nil, nil
}

func (r *emailRepo) GetByUserAndMessageID(ctx context.Context, userID, messageID string) (*models.Email, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	messageID = utils.NormalizeMessageID(messageID)
	for _, e := range r.s.emails {
		if e.UserID == userID && e.MessageID == messageID {
			return copyEmail(e), nil
		}
	}
	return nil, nil
}

func (r *emailRepo) listByConversation(conversationID string) []*models.Email {
	var emails []*models.Email
	for _, e := range r.s.emails {
		if e.ConversationID == conversationID {
			emails = append(emails, copyEmail(e))
		}
	}
	return emails
}

func (r *emailRepo) ListByConversation(ctx context.Context, conversationID string) ([]*models.Email, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	emails := r.listByConversation(conversationID)
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.Before(emails[j].ReceivedAt)
	})
	return emails, nil
}

func (r *emailRepo) ListRecentByConversation(ctx context.Context, conversationID string, limit int) ([]*models.Email, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	emails := r.listByConversation(conversationID)
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})
	if limit > 0 && len(emails) > limit {
		emails = emails[:limit]
	}
	return emails, nil
}

func (r *emailRepo) ListByUser(ctx context.Context, userID string) ([]*models.Email, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var emails []*models.Email
	for _, e := range r.s.emails {
		if e.UserID == userID {
			emails = append(emails, copyEmail(e))
		}
	}
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.Before(emails[j].ReceivedAt)
	})
	return emails, nil
}

func (r *emailRepo) AssignConversation(ctx context.Context, emailID, conversationID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.emails[emailID]
	if !ok {
		return repository.ErrEmailNotFound
	}
	e.ConversationID = conversationID
	return nil
}

func (r *emailRepo) UpdateFlags(ctx context.Context, id string, updates map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.emails[id]
	if !ok {
		return repository.ErrEmailNotFound
	}
	for column, value := range updates {
		switch column {
		case "is_read":
			e.IsRead = value.(bool)
		case "is_starred":
			e.IsStarred = value.(bool)
		case "folder":
			e.Folder = value.(string)
		default:
			return repository.ErrInvalidInput
		}
	}
	return nil
}

func (r *emailRepo) SetReadByConversation(ctx context.Context, conversationID string, isRead bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var changed int64
	for _, e := range r.s.emails {
		if e.ConversationID == conversationID && e.IsRead != isRead {
			e.IsRead = isRead
			changed++
		}
	}
	return changed, nil
}

func (r *emailRepo) SetFolderByConversation(ctx context.Context, conversationID, folder string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.emails {
		if e.ConversationID == conversationID {
			e.Folder = folder
		}
	}
	return nil
}

func (r *emailRepo) HardDelete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.emails[id]; !ok {
		return repository.ErrEmailNotFound
	}
	delete(r.s.emails, id)
	return nil
}

func (r *emailRepo) MaxReceivedAtByConversation(ctx context.Context, conversationID string) (*time.Time, string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var newest *models.Email
	for _, e := range r.s.emails {
		if e.ConversationID != conversationID {
			continue
		}
		if newest == nil || e.ReceivedAt.After(newest.ReceivedAt) {
			newest = e
		}
	}
	if newest == nil {
		return nil, "", nil
	}
	receivedAt := newest.ReceivedAt
	return &receivedAt, newest.MessageID, nil
}

func (r *emailRepo) AnyAttachmentByConversation(ctx context.Context, conversationID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.emails {
		if e.ConversationID == conversationID && e.HasAttachment {
			return true, nil
		}
	}
	return false, nil
}

func (r *emailRepo) ClearConversationID(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.emails {
		if e.UserID == userID {
			e.ConversationID = ""
		}
	}
	return nil
}

// conversationRepo

type conversationRepo struct {
	s *store
}

func (r *conversationRepo) Create(ctx context.Context, conversation *models.Conversation) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if conversation == nil || conversation.UserID == "" {
		return "", repository.ErrInvalidInput
	}
	for _, existing := range r.s.conversations {
		if existing.UserID == conversation.UserID && existing.ThreadKey == conversation.ThreadKey && conversation.ThreadKey != "" {
			return "", repository.ErrInvalidInput
		}
	}
	if conversation.ID == "" {
		conversation.ID = utils.GenerateNanoIDWithPrefix("conv", 16)
	}
	conversation.CreatedAt = utils.Now()
	r.s.conversations[conversation.ID] = copyConversation(conversation)
	return conversation.ID, nil
}

func (r *conversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.conversations[id]; ok {
		return copyConversation(c), nil
	}
	return nil, nil
}

func (r *conversationRepo) GetByUserAndThreadKey(ctx context.Context, userID, threadKey string) (*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.conversations {
		if c.UserID == userID && c.ThreadKey == threadKey {
			return copyConversation(c), nil
		}
	}
	return nil, nil
}

func (r *conversationRepo) FindBySubjectAndUser(ctx context.Context, userID, cleanSubject string, since time.Time) ([]*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var candidates []*models.Conversation
	for _, c := range r.s.conversations {
		if c.UserID != userID || c.CleanSubject != cleanSubject {
			continue
		}
		if c.LastMessageAt == nil || !c.LastMessageAt.After(since) {
			continue
		}
		candidates = append(candidates, copyConversation(c))
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastMessageAt.After(*candidates[j].LastMessageAt)
	})
	return candidates, nil
}

func sortNewestFirst(conversations []*models.Conversation) {
	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		switch {
		case a.LastMessageAt == nil && b.LastMessageAt == nil:
			return a.ID < b.ID
		case a.LastMessageAt == nil:
			return false
		case b.LastMessageAt == nil:
			return true
		case a.LastMessageAt.Equal(*b.LastMessageAt):
			return a.ID < b.ID
		default:
			return a.LastMessageAt.After(*b.LastMessageAt)
		}
	})
}

func page(conversations []*models.Conversation, limit, offset int) []*models.Conversation {
	if offset >= len(conversations) {
		return nil
	}
	conversations = conversations[offset:]
	if limit > 0 && len(conversations) > limit {
		conversations = conversations[:limit]
	}
	return conversations
}

func matchesFilter(c *models.Conversation, filter interfaces.ConversationFilter) bool {
	if filter.UnreadOnly && c.UnreadCount == 0 {
		return false
	}
	if filter.StarredOnly && !c.Starred {
		return false
	}
	if filter.HasAttachments && !c.HasAttachments {
		return false
	}
	return true
}

func (r *conversationRepo) ListByUserAndFolder(ctx context.Context, userID, folder string, filter interfaces.ConversationFilter, limit, offset int) ([]*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*models.Conversation
	for _, c := range r.s.conversations {
		if c.UserID != userID {
			continue
		}
		if folder != "" && c.Folder != folder {
			continue
		}
		if !matchesFilter(c, filter) {
			continue
		}
		matched = append(matched, copyConversation(c))
	}
	sortNewestFirst(matched)
	return page(matched, limit, offset), nil
}

func (r *conversationRepo) CountByUserAndFolder(ctx context.Context, userID, folder string, filter interfaces.ConversationFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, c := range r.s.conversations {
		if c.UserID != userID {
			continue
		}
		if folder != "" && c.Folder != folder {
			continue
		}
		if !matchesFilter(c, filter) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *conversationRepo) Search(ctx context.Context, userID, query, folder string, limit, offset int) ([]*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	needle := strings.ToLower(query)

	memberMatch := make(map[string]bool)
	for _, e := range r.s.emails {
		if e.UserID != userID || e.ConversationID == "" {
			continue
		}
		if strings.Contains(strings.ToLower(e.BodyText), needle) ||
			strings.Contains(strings.ToLower(e.FromAddress), needle) {
			memberMatch[e.ConversationID] = true
		}
	}

	var matched []*models.Conversation
	for _, c := range r.s.conversations {
		if c.UserID != userID {
			continue
		}
		if folder != "" && c.Folder != folder {
			continue
		}
		hit := strings.Contains(strings.ToLower(c.Subject), needle) ||
			strings.Contains(strings.ToLower(strings.Join(c.Participants, " ")), needle) ||
			memberMatch[c.ID]
		if hit {
			matched = append(matched, copyConversation(c))
		}
	}
	sortNewestFirst(matched)
	return page(matched, limit, offset), nil
}

func (r *conversationRepo) ApplyAggregateDelta(ctx context.Context, conversationID string, delta interfaces.AggregateDelta) (*models.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[conversationID]
	if !ok {
		return nil, repository.ErrConversationNotFound
	}

	messageCount := c.MessageCount + delta.MessageCountDelta
	if messageCount < 0 {
		messageCount = 0
	}
	unreadCount := c.UnreadCount + delta.UnreadCountDelta
	if unreadCount < 0 {
		unreadCount = 0
	}
	if unreadCount > messageCount {
		unreadCount = messageCount
	}
	c.MessageCount = messageCount
	c.UnreadCount = unreadCount

	if delta.SetHasAttachments != nil {
		c.HasAttachments = *delta.SetHasAttachments
	}

	if delta.ForceRecompute {
		c.LastMessageAt = delta.RecomputedAt
		c.LastMessageID = utils.NormalizeMessageID(delta.RecomputedID)
	} else if delta.NewMessageAt != nil {
		if c.LastMessageAt == nil || delta.NewMessageAt.After(*c.LastMessageAt) {
			t := *delta.NewMessageAt
			c.LastMessageAt = &t
			c.LastMessageID = utils.NormalizeMessageID(delta.NewMessageID)
		}
		if c.FirstMessageAt == nil || delta.NewMessageAt.Before(*c.FirstMessageAt) {
			t := *delta.NewMessageAt
			c.FirstMessageAt = &t
		}
	}

	if len(delta.AddParticipants) > 0 {
		merged := append([]string{}, c.Participants...)
		merged = append(merged, delta.AddParticipants...)
		c.Participants = utils.UniqueStrings(merged)
	}

	if delta.Folder != "" {
		c.Folder = delta.Folder
	}

	c.UpdatedAt = utils.Now()
	return copyConversation(c), nil
}

func (r *conversationRepo) SetStarred(ctx context.Context, conversationID string, starred bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[conversationID]
	if !ok {
		return repository.ErrConversationNotFound
	}
	c.Starred = starred
	return nil
}

func (r *conversationRepo) SetFolder(ctx context.Context, conversationID, folder string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[conversationID]
	if !ok {
		return repository.ErrConversationNotFound
	}
	c.Folder = folder
	return nil
}

func (r *conversationRepo) Delete(ctx context.Context, conversationID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.conversations, conversationID)
	return nil
}

func (r *conversationRepo) DeleteByUser(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.conversations {
		if c.UserID == userID {
			delete(r.s.conversations, id)
		}
	}
	return nil
}

// orphanRepo

type orphanRepo struct {
	s *store
}

func (r *orphanRepo) Create(ctx context.Context, orphan *models.OrphanEmail) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if orphan.ID == "" {
		orphan.ID = utils.GenerateNanoIDWithPrefix("orpn", 12)
	}
	c := *orphan
	r.s.orphans[orphan.ID] = &c
	return orphan.ID, nil
}

func (r *orphanRepo) GetByUserAndMessageID(ctx context.Context, userID, messageID string) (*models.OrphanEmail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orphans {
		if o.UserID == userID && o.MessageID == messageID {
			c := *o
			return &c, nil
		}
	}
	return nil, nil
}

func (r *orphanRepo) DeleteByConversationID(ctx context.Context, conversationID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, o := range r.s.orphans {
		if o.ConversationID == conversationID {
			delete(r.s.orphans, id)
		}
	}
	return nil
}

// quarantineRepo

type quarantineRepo struct {
	s *store
}

func (r *quarantineRepo) Create(ctx context.Context, quarantined *models.QuarantinedEmail) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if quarantined.ID == "" {
		quarantined.ID = utils.GenerateNanoIDWithPrefix("quar", 12)
	}
	c := *quarantined
	r.s.quarantined[quarantined.ID] = &c
	return quarantined.ID, nil
}

func (r *quarantineRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.QuarantinedEmail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var quarantined []*models.QuarantinedEmail
	for _, q := range r.s.quarantined {
		if q.UserID == userID {
			c := *q
			quarantined = append(quarantined, &c)
		}
	}
	sort.Slice(quarantined, func(i, j int) bool {
		return quarantined[i].ID < quarantined[j].ID
	})
	if offset >= len(quarantined) {
		return nil, nil
	}
	quarantined = quarantined[offset:]
	if limit > 0 && len(quarantined) > limit {
		quarantined = quarantined[:limit]
	}
	return quarantined, nil
}

// syncStateRepo

type syncStateRepo struct {
	s *store
}

func syncKey(userID, folderName string) string {
	return userID + "|" + folderName
}

func (r *syncStateRepo) GetSyncState(ctx context.Context, userID, folderName string) (*models.SyncState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if state, ok := r.s.syncStates[syncKey(userID, folderName)]; ok {
		c := *state
		return &c, nil
	}
	return nil, nil
}

func (r *syncStateRepo) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *state
	r.s.syncStates[syncKey(state.UserID, state.FolderName)] = &c
	return nil
}

func (r *syncStateRepo) DeleteSyncState(ctx context.Context, userID, folderName string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.syncStates, syncKey(userID, folderName))
	return nil
}

// attachmentRepo

type attachmentRepo struct {
	s *store
}

func (r *attachmentRepo) Store(ctx context.Context, attachment *models.EmailAttachment, file *interfaces.AttachmentFile) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if attachment.ID == "" {
		attachment.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	c := *attachment
	r.s.attachments[attachment.ID] = &c
	return attachment.ID, nil
}

func (r *attachmentRepo) ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var attachments []*models.EmailAttachment
	for _, a := range r.s.attachments {
		if a.EmailID == emailID {
			c := *a
			attachments = append(attachments, &c)
		}
	}
	return attachments, nil
}
