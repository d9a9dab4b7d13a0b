package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kaamsetu_backend/internal/models"
	"kaamsetu_backend/internal/payments"
	"kaamsetu_backend/internal/repositories"
)

// In-memory repository fakes honoring the same conditional-update
// semantics as the SQL implementations, so concurrency scenarios behave
// identically.

var idCounter int
var idMu sync.Mutex

func nextID(prefix string) string {
	idMu.Lock()
	defer idMu.Unlock()
	idCounter++
	return fmt.Sprintf("%s-%04d", prefix, idCounter)
}

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*models.Job

	rooms        *fakeProposalRepo
	transactions *fakeTransactionRepo
}

func newFakeJobRepo(rooms *fakeProposalRepo, transactions *fakeTransactionRepo) *fakeJobRepo {
	return &fakeJobRepo{
		jobs:         make(map[string]*models.Job),
		rooms:        rooms,
		transactions: transactions,
	}
}

func (r *fakeJobRepo) Create(_ context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = nextID("job")
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *fakeJobRepo) FindByID(_ context.Context, id string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *fakeJobRepo) Update(_ context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return repositories.ErrJobNotFound
	}
	job.UpdatedAt = time.Now()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *fakeJobRepo) ListOpen(_ context.Context, city string) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Job
	for _, job := range r.jobs {
		if job.Status == models.JobStatusOpen && (city == "" || job.City == city) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListByCustomer(_ context.Context, customerID string) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Job
	for _, job := range r.jobs {
		if job.CustomerID == customerID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListByTradesperson(_ context.Context, tradespersonID string) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Job
	for _, job := range r.jobs {
		if job.AssignedTo != nil && *job.AssignedTo == tradespersonID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListUnpaidAssigned(_ context.Context, assignedBefore time.Time) ([]models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Job
	for _, job := range r.jobs {
		if job.Status == models.JobStatusAssigned && !job.IsPaid && job.UpdatedAt.Before(assignedBefore) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) Assign(_ context.Context, jobID, tradespersonID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return 0, repositories.ErrJobNotFound
	}
	if job.Status != models.JobStatusOpen {
		return 0, repositories.ErrJobNotOpen
	}
	job.Status = models.JobStatusAssigned
	job.AssignedTo = &tradespersonID
	job.UpdatedAt = time.Now()

	var archived int64
	if r.rooms != nil {
		archived = r.rooms.archiveCompeting(jobID, tradespersonID)
	}
	return archived, nil
}

func (r *fakeJobRepo) Cancel(_ context.Context, jobID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return 0, repositories.ErrJobNotFound
	}
	if job.Status != models.JobStatusOpen {
		return 0, repositories.ErrJobNotOpen
	}
	job.Status = models.JobStatusCancelled
	job.UpdatedAt = time.Now()

	var archived int64
	if r.rooms != nil {
		archived = r.rooms.archiveCompeting(jobID, "")
	}
	return archived, nil
}

// MarkPaidAndRecord mirrors the SQL layer's single transaction: a failed
// ledger insert rolls the paid flag back.
func (r *fakeJobRepo) MarkPaidAndRecord(ctx context.Context, jobID, completionCode string, tr *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return repositories.ErrJobNotFound
	}
	if job.IsPaid {
		return repositories.ErrJobAlreadyPaid
	}
	if job.Status != models.JobStatusAssigned {
		return repositories.ErrJobNotAssigned
	}
	if err := r.transactions.Create(ctx, tr); err != nil {
		return err
	}
	job.IsPaid = true
	job.CompletionCode = completionCode
	job.UpdatedAt = time.Now()
	return nil
}

func (r *fakeJobRepo) Complete(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return repositories.ErrJobNotFound
	}
	if job.Status != models.JobStatusAssigned && job.Status != models.JobStatusInProgress {
		return repositories.ErrJobNotAssigned
	}
	job.Status = models.JobStatusCompleted
	job.IsCompleted = true
	job.UpdatedAt = time.Now()
	return nil
}

type fakeProposalRepo struct {
	mu       sync.Mutex
	rooms    map[string]*models.ChatRoom
	messages map[string][]models.Message

	missNextFind bool
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{
		rooms:    make(map[string]*models.ChatRoom),
		messages: make(map[string][]models.Message),
	}
}

func (r *fakeProposalRepo) Create(_ context.Context, room *models.ChatRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rooms {
		if existing.JobID == room.JobID && existing.TradespersonID == room.TradespersonID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if room.ID == "" {
		room.ID = nextID("room")
	}
	room.CreatedAt = time.Now()
	clone := *room
	r.rooms[room.ID] = &clone
	return nil
}

func (r *fakeProposalRepo) FindByID(_ context.Context, id string) (*models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, repositories.ErrRoomNotFound
	}
	clone := *room
	return &clone, nil
}

func (r *fakeProposalRepo) FindByJobAndTradesperson(_ context.Context, jobID, tradespersonID string) (*models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missNextFind {
		r.missNextFind = false
		return nil, repositories.ErrRoomNotFound
	}
	for _, room := range r.rooms {
		if room.JobID == jobID && room.TradespersonID == tradespersonID {
			clone := *room
			return &clone, nil
		}
	}
	return nil, repositories.ErrRoomNotFound
}

func (r *fakeProposalRepo) ListByJob(_ context.Context, jobID string) ([]models.ChatRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatRoom
	for _, room := range r.rooms {
		if room.JobID == jobID {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (r *fakeProposalRepo) CreateMessage(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == "" {
		msg.ID = nextID("msg")
	}
	msg.CreatedAt = time.Now()
	r.messages[msg.RoomID] = append(r.messages[msg.RoomID], *msg)
	return nil
}

func (r *fakeProposalRepo) ListMessages(_ context.Context, roomID string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message(nil), r.messages[roomID]...), nil
}

// archiveCompeting mirrors the room archiving the SQL layer does inside
// the assign/cancel transaction. Empty winnerID archives every room.
func (r *fakeProposalRepo) archiveCompeting(jobID, winnerID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var archived int64
	for _, room := range r.rooms {
		if room.JobID == jobID && room.TradespersonID != winnerID && !room.IsArchived {
			room.IsArchived = true
			archived++
		}
	}
	return archived
}

type fakeTransactionRepo struct {
	mu           sync.Mutex
	transactions map[string]*models.Transaction

	failNextCreate error
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{transactions: make(map[string]*models.Transaction)}
}

func (r *fakeTransactionRepo) Create(_ context.Context, tr *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNextCreate != nil {
		err := r.failNextCreate
		r.failNextCreate = nil
		return err
	}
	for _, existing := range r.transactions {
		if existing.Reference == tr.Reference {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if tr.ID == "" {
		tr.ID = nextID("txn")
	}
	tr.CreatedAt = time.Now()
	clone := *tr
	r.transactions[tr.ID] = &clone
	return nil
}

func (r *fakeTransactionRepo) FindByReference(_ context.Context, reference string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tr := range r.transactions {
		if tr.Reference == reference {
			clone := *tr
			return &clone, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *fakeTransactionRepo) FindSuccessfulByJob(_ context.Context, jobID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tr := range r.transactions {
		if tr.JobID == jobID && tr.Status == models.TransactionStatusSuccess {
			clone := *tr
			return &clone, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *fakeTransactionRepo) ListByJob(_ context.Context, jobID string) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, tr := range r.transactions {
		if tr.JobID == jobID {
			out = append(out, *tr)
		}
	}
	return out, nil
}

func (r *fakeTransactionRepo) UpdateStatus(_ context.Context, id string, status models.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.transactions[id]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	tr.Status = status
	return nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[string]*models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[string]*models.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == "" {
		n.ID = nextID("ntf")
	}
	n.CreatedAt = time.Now()
	clone := *n
	r.notifications[n.ID] = &clone
	return nil
}

func (r *fakeNotificationRepo) FindByID(_ context.Context, id string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, repositories.ErrNotificationNotFound
	}
	clone := *n
	return &clone, nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			all = append(all, *n)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeNotificationRepo) ListUnread(_ context.Context, userID string) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[notificationID]
	if !ok || n.UserID != userID {
		return repositories.ErrNotificationNotFound
	}
	if !n.IsRead {
		now := time.Now()
		n.IsRead = true
		n.ReadAt = &now
	}
	return nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
		}
	}
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = nextID("usr")
	}
	user.CreatedAt = time.Now()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakePusher struct {
	mu     sync.Mutex
	pushed map[string][]any
}

func newFakePusher() *fakePusher {
	return &fakePusher{pushed: make(map[string][]any)}
}

func (p *fakePusher) Push(userID string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed[userID] = append(p.pushed[userID], payload)
}

func (p *fakePusher) count(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushed[userID])
}

type fakeProcessor struct {
	mu       sync.Mutex
	released []string
	refunded []string

	failRelease error
}

func (p *fakeProcessor) CreateIntent(_ context.Context, amount float64, currency string) (*payments.Intent, error) {
	return &payments.Intent{
		ClientSecret: "secret_test",
		Reference:    nextID("pi"),
	}, nil
}

func (p *fakeProcessor) Release(_ context.Context, reference string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failRelease != nil {
		return p.failRelease
	}
	p.released = append(p.released, reference)
	return nil
}

func (p *fakeProcessor) Refund(_ context.Context, reference string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunded = append(p.refunded, reference)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

// testEnv bundles the full fake dependency graph wired the same way the
// application does it.
type testEnv struct {
	jobRepo          *fakeJobRepo
	proposalRepo     *fakeProposalRepo
	transactionRepo  *fakeTransactionRepo
	notificationRepo *fakeNotificationRepo
	userRepo         *fakeUserRepo
	pusher           *fakePusher
	processor        *fakeProcessor
	mailer           *fakeMailer

	notifications NotificationService
	escrow        EscrowService
	jobs          JobService
	proposals     ProposalService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		proposalRepo:     newFakeProposalRepo(),
		transactionRepo:  newFakeTransactionRepo(),
		notificationRepo: newFakeNotificationRepo(),
		userRepo:         newFakeUserRepo(),
		pusher:           newFakePusher(),
		processor:        &fakeProcessor{},
		mailer:           &fakeMailer{},
	}
	env.jobRepo = newFakeJobRepo(env.proposalRepo, env.transactionRepo)

	env.notifications = NewNotificationService(env.notificationRepo, env.pusher)
	env.escrow = NewEscrowService(
		env.transactionRepo, env.jobRepo, env.proposalRepo, env.notifications, env.processor, "inr")
	env.jobs = NewJobService(
		env.jobRepo, env.proposalRepo, env.userRepo, env.escrow, env.notifications, env.mailer)
	env.proposals = NewProposalService(
		env.proposalRepo, env.jobRepo, env.userRepo, env.notifications)
	return env
}

func (env *testEnv) seedUser(role models.UserRole) *models.User {
	user := &models.User{
		Name:  "Test User",
		Email: nextID("mail") + "@example.com",
		Role:  role,
	}
	_ = env.userRepo.Create(context.Background(), user)
	return user
}

func (env *testEnv) seedOpenJob(customerID string) *models.Job {
	job := &models.Job{
		CustomerID:     customerID,
		Title:          "Fix leaking tap",
		Category:       "plumbing",
		City:           "Pune",
		Status:         models.JobStatusOpen,
		CompletionCode: "000000",
	}
	_ = env.jobRepo.Create(context.Background(), job)
	return job
}

func (env *testEnv) seedRoom(jobID, customerID, tradespersonID string) *models.ChatRoom {
	room := &models.ChatRoom{
		JobID:          jobID,
		CustomerID:     customerID,
		TradespersonID: tradespersonID,
	}
	_ = env.proposalRepo.Create(context.Background(), room)
	return room
}
