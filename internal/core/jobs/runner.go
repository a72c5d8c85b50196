package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gomarketplace_hub/internal/core/importer"
	"gomarketplace_hub/metrics"
)

type State string

const (
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// ErrNotFound: задачи с таким id нет ни в памяти, ни в хранилище статусов.
var ErrNotFound = errors.New("job not found")

type Importer interface {
	ImportProductsByBrands(ctx context.Context, companyID, supplierID int64, brandIDs []int64, opts importer.ImportOptions) (*importer.ImportResult, error)
}

type ImportRequest struct {
	CompanyID      int64    `json:"company_id" validate:"required,gt=0"`
	SupplierID     int64    `json:"supplier_id" validate:"required,gt=0"`
	BrandIDs       []int64  `json:"brand_ids"`
	UpdateExisting *bool    `json:"update_existing"`
	Categories     []string `json:"categories"`
	WarehouseIDs   []string `json:"warehouse_ids"`
}

func (r ImportRequest) options() importer.ImportOptions {
	opts := importer.DefaultImportOptions()
	if r.UpdateExisting != nil {
		opts.UpdateExisting = *r.UpdateExisting
	}
	opts.Categories = r.Categories
	opts.WarehouseIDs = r.WarehouseIDs
	return opts
}

// Job: снимок состояния фонового импорта.
type Job struct {
	ID         string                         `json:"id"`
	CompanyID  int64                          `json:"company_id"`
	SupplierID int64                          `json:"supplier_id"`
	State      State                          `json:"state"`
	StartedAt  time.Time                      `json:"started_at"`
	FinishedAt *time.Time                     `json:"finished_at,omitempty"`
	Progress   metrics.ImportProgressSnapshot `json:"progress"`
	Result     *importer.ImportResult         `json:"result,omitempty"`
	Error      string                         `json:"error,omitempty"`
}

type run struct {
	job      Job
	cancel   context.CancelFunc
	progress *metrics.ImportProgress
}

// StatusStore дублирует статусы задач, чтобы их видели другие экземпляры сервиса.
type StatusStore interface {
	Save(ctx context.Context, job Job) error
	Load(ctx context.Context, id string) (*Job, error)
}

// Без хранилища статусов завершённые задачи видны в памяти ещё столько.
const finishedRetention = time.Hour

// Runner запускает импорты в фоне. Задача живёт в памяти процесса, который её запустил,
// пока идёт; завершённая уходит в хранилище статусов.
type Runner struct {
	importer  Importer
	store     StatusStore
	log       *zap.Logger
	now       func() time.Time
	retention time.Duration

	mu   sync.Mutex
	runs map[string]*run
	wg   sync.WaitGroup
}

// NewRunner: store может быть nil.
func NewRunner(imp Importer, store StatusStore, log *zap.Logger) *Runner {
	return &Runner{
		importer:  imp,
		store:     store,
		log:       log.Named("jobs"),
		now:       time.Now,
		retention: finishedRetention,
		runs:      make(map[string]*run),
	}
}

// Start возвращает id задачи сразу; сам импорт идёт в отдельной горутине.
func (r *Runner) Start(req ImportRequest) (string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	rn := &run{
		job: Job{
			ID:         uuid.NewString(),
			CompanyID:  req.CompanyID,
			SupplierID: req.SupplierID,
			State:      StateRunning,
			StartedAt:  r.now(),
		},
		cancel:   cancel,
		progress: &metrics.ImportProgress{},
	}

	r.mu.Lock()
	r.pruneLocked()
	r.runs[rn.job.ID] = rn
	r.mu.Unlock()
	r.persist(rn.job)

	opts := req.options()
	opts.Progress = rn.progress

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		res, err := r.importer.ImportProductsByBrands(ctx, req.CompanyID, req.SupplierID, req.BrandIDs, opts)
		r.finish(rn, res, err)
	}()

	r.log.Info("Import job started", zap.String("job_id", rn.job.ID),
		zap.Int64("company_id", req.CompanyID), zap.Int64("supplier_id", req.SupplierID))
	return rn.job.ID, nil
}

func (r *Runner) finish(rn *run, res *importer.ImportResult, err error) {
	r.mu.Lock()
	finished := r.now()
	rn.job.FinishedAt = &finished
	rn.job.Result = res
	rn.job.Progress = rn.progress.Snapshot()
	switch {
	case errors.Is(err, context.Canceled):
		rn.job.State = StateCancelled
	case err != nil:
		rn.job.State = StateFailed
		rn.job.Error = err.Error()
	default:
		rn.job.State = StateSucceeded
	}
	job := rn.job
	r.mu.Unlock()

	if r.persist(job) {
		// статус теперь отдаёт хранилище
		r.mu.Lock()
		delete(r.runs, job.ID)
		r.mu.Unlock()
	}
	if err != nil && job.State == StateFailed {
		r.log.Warn("Import job failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	r.log.Info("Import job finished", zap.String("job_id", job.ID), zap.String("state", string(job.State)))
}

// Status возвращает снимок задачи; завершённые и чужие задачи берутся из хранилища статусов.
func (r *Runner) Status(ctx context.Context, id string) (*Job, error) {
	r.mu.Lock()
	rn, ok := r.runs[id]
	if ok {
		job := rn.job
		if job.State == StateRunning {
			job.Progress = rn.progress.Snapshot()
		}
		r.mu.Unlock()
		return &job, nil
	}
	r.mu.Unlock()

	if r.store == nil {
		return nil, ErrNotFound
	}
	return r.store.Load(ctx, id)
}

// Cancel отменяет задачу этого процесса. Транзакция импорта откатывается целиком.
func (r *Runner) Cancel(id string) error {
	r.mu.Lock()
	rn, ok := r.runs[id]
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	rn.cancel()
	return nil
}

// Wait дожидается завершения всех запущенных задач (для остановки сервиса и тестов).
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown отменяет все задачи и ждёт их завершения.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	for _, rn := range r.runs {
		rn.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// persist сообщает, сохранён ли статус.
func (r *Runner) persist(job Job) bool {
	if r.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Save(ctx, job); err != nil {
		r.log.Warn("Failed to save job status", zap.String("job_id", job.ID), zap.Error(err))
		return false
	}
	return true
}

// pruneLocked убирает из памяти задачи, завершённые раньше окна хранения.
func (r *Runner) pruneLocked() {
	cutoff := r.now().Add(-r.retention)
	for id, rn := range r.runs {
		if rn.job.FinishedAt != nil && rn.job.FinishedAt.Before(cutoff) {
			delete(r.runs, id)
		}
	}
}
