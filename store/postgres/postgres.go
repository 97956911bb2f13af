// Package postgres implements the core store interfaces on PostgreSQL via
// GORM. It is the persistent counterpart of the in-memory store: same
// contracts, same uniqueness semantics (enforced by unique indexes instead
// of in-process maps), atomic usage increments via a single UPDATE.
package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hupe1980/automesh/core"
)

// Options configure the Postgres store connection.
type Options struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        gormlogger.LogLevel
}

// Store is a GORM backed implementation of core.TenantStore,
// core.AutomationStore and core.ExecutionStore.
type Store struct {
	db *gorm.DB
}

// Compile-time interface assertions.
var (
	_ core.TenantStore     = (*Store)(nil)
	_ core.AutomationStore = (*Store)(nil)
	_ core.ExecutionStore  = (*Store)(nil)
)

// Open connects to PostgreSQL, applies pool settings and migrates the schema.
func Open(dsn string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		LogLevel:        gormlogger.Warn,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(opts.LogLevel),
		TranslateError: true, // surface unique violations as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.AutoMigrate(&tenantRow{}, &userRow{}, &usageRow{}, &automationRow{}, &executionRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an existing gorm.DB (tests, shared pools). The caller is
// responsible for migrations.
func NewFromDB(db *gorm.DB) *Store { return &Store{db: db} }

// tenantRow is the relational shape of core.Tenant. Limits and features are
// stored as jsonb documents since their shape tracks the plan catalog, not
// relational queries.
type tenantRow struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"type:varchar(100);not null"`
	Slug      string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Status    string `gorm:"type:varchar(20);index;not null"`
	Plan      string `gorm:"type:varchar(20);not null"`
	Limits    []byte `gorm:"type:jsonb"`
	Features  []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (tenantRow) TableName() string { return "tenants" }

type userRow struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	TenantID  string `gorm:"type:varchar(36);index;not null;uniqueIndex:idx_tenant_email,priority:1"`
	Email     string `gorm:"type:varchar(100);not null;uniqueIndex:idx_tenant_email,priority:2"`
	Name      string `gorm:"type:varchar(100)"`
	Role      string `gorm:"type:varchar(20);not null"`
	Status    string `gorm:"type:varchar(20);index;not null"`
	APIKeys   []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRow) TableName() string { return "users" }

type usageRow struct {
	TenantID     string    `gorm:"primaryKey;type:varchar(36)"`
	PeriodStart  time.Time `gorm:"primaryKey"`
	APICalls     int64
	StorageBytes int64
	Executions   int64
}

func (usageRow) TableName() string { return "usage_counters" }

type automationRow struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	TenantID       string `gorm:"type:varchar(36);index;not null;index:idx_tenant_trigger,priority:1"`
	Name           string `gorm:"type:varchar(200);not null"`
	Description    string `gorm:"type:text"`
	TriggerKind    string `gorm:"type:varchar(20);index:idx_tenant_trigger,priority:2;not null"`
	TriggerConfig  []byte `gorm:"type:jsonb"`
	Conditions     []byte `gorm:"type:jsonb"`
	Actions        []byte `gorm:"type:jsonb"`
	Enabled        bool   `gorm:"index"`
	ExecutionCount int64
	LastExecutedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (automationRow) TableName() string { return "automations" }

type executionRow struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	AutomationID string `gorm:"type:varchar(36);index;not null"`
	UserID       string `gorm:"type:varchar(36)"`
	Status       string `gorm:"type:varchar(20);not null"`
	Input        []byte `gorm:"type:jsonb"`
	Output       []byte `gorm:"type:jsonb"`
	Error        string `gorm:"type:text"`
	DurationNS   int64
	CreatedAt    time.Time `gorm:"index"`
}

func (executionRow) TableName() string { return "executions" }

func marshal(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func toTenantRow(t *core.Tenant) *tenantRow {
	return &tenantRow{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Status:    string(t.Status),
		Plan:      string(t.Plan),
		Limits:    marshal(t.Limits),
		Features:  marshal(t.Features),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func fromTenantRow(r *tenantRow) *core.Tenant {
	t := &core.Tenant{
		ID:        r.ID,
		Name:      r.Name,
		Slug:      r.Slug,
		Status:    core.TenantStatus(r.Status),
		Plan:      core.PlanTier(r.Plan),
		Features:  map[string]bool{},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	_ = json.Unmarshal(r.Limits, &t.Limits)
	_ = json.Unmarshal(r.Features, &t.Features)
	return t
}

func toUserRow(u *core.User) *userRow {
	return &userRow{
		ID:        u.ID,
		TenantID:  u.TenantID,
		Email:     core.NormalizeEmail(u.Email),
		Name:      u.Name,
		Role:      string(u.Role),
		Status:    string(u.Status),
		APIKeys:   marshal(u.APIKeys),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func fromUserRow(r *userRow) *core.User {
	u := &core.User{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Email:     r.Email,
		Name:      r.Name,
		Role:      core.UserRole(r.Role),
		Status:    core.UserStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	_ = json.Unmarshal(r.APIKeys, &u.APIKeys)
	return u
}

func toAutomationRow(a *core.Automation) *automationRow {
	return &automationRow{
		ID:             a.ID,
		TenantID:       a.TenantID,
		Name:           a.Name,
		Description:    a.Description,
		TriggerKind:    string(a.Trigger.Kind),
		TriggerConfig:  marshal(a.Trigger.Config),
		Conditions:     marshal(a.Conditions),
		Actions:        marshal(a.Actions),
		Enabled:        a.Enabled,
		ExecutionCount: a.ExecutionCount,
		LastExecutedAt: a.LastExecutedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func fromAutomationRow(r *automationRow) *core.Automation {
	a := &core.Automation{
		ID:             r.ID,
		TenantID:       r.TenantID,
		Name:           r.Name,
		Description:    r.Description,
		Trigger:        core.Trigger{Kind: core.TriggerKind(r.TriggerKind)},
		Enabled:        r.Enabled,
		ExecutionCount: r.ExecutionCount,
		LastExecutedAt: r.LastExecutedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	_ = json.Unmarshal(r.TriggerConfig, &a.Trigger.Config)
	_ = json.Unmarshal(r.Conditions, &a.Conditions)
	_ = json.Unmarshal(r.Actions, &a.Actions)
	return a
}

func toExecutionRow(rec *core.ExecutionRecord) *executionRow {
	return &executionRow{
		ID:           rec.ID,
		AutomationID: rec.AutomationID,
		UserID:       rec.UserID,
		Status:       string(rec.Status),
		Input:        marshal(rec.Input),
		Output:       marshal(rec.Output),
		Error:        rec.Error,
		DurationNS:   int64(rec.Duration),
		CreatedAt:    rec.CreatedAt,
	}
}

func fromExecutionRow(r *executionRow) *core.ExecutionRecord {
	rec := &core.ExecutionRecord{
		ID:           r.ID,
		AutomationID: r.AutomationID,
		UserID:       r.UserID,
		Status:       core.ExecutionStatus(r.Status),
		Error:        r.Error,
		Duration:     time.Duration(r.DurationNS),
		CreatedAt:    r.CreatedAt,
	}
	_ = json.Unmarshal(r.Input, &rec.Input)
	_ = json.Unmarshal(r.Output, &rec.Output)
	return rec
}

// isUniqueViolation detects a unique index violation across gorm/pgx layers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return false
}

// PutTenant upserts a tenant; a slug collision surfaces as *core.DuplicateSlugError.
func (s *Store) PutTenant(t *core.Tenant) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(toTenantRow(t)).Error
	if isUniqueViolation(err) {
		return &core.DuplicateSlugError{Slug: t.Slug}
	}
	return err
}

// GetTenant fetches a tenant by id.
func (s *Store) GetTenant(id string) (*core.Tenant, error) {
	var row tenantRow
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tenant %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return fromTenantRow(&row), nil
}

// GetTenantBySlug fetches a tenant through the unique slug index.
func (s *Store) GetTenantBySlug(slug string) (*core.Tenant, error) {
	var row tenantRow
	if err := s.db.First(&row, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tenant slug %q: %w", slug, core.ErrNotFound)
		}
		return nil, err
	}
	return fromTenantRow(&row), nil
}

// ListTenants returns all tenants ordered by creation time.
func (s *Store) ListTenants() ([]*core.Tenant, error) {
	var rows []tenantRow
	if err := s.db.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	tenants := make([]*core.Tenant, len(rows))
	for i := range rows {
		tenants[i] = fromTenantRow(&rows[i])
	}
	return tenants, nil
}

// PutUser upserts a user; a (tenant, email) collision surfaces as
// *core.DuplicateEmailError.
func (s *Store) PutUser(u *core.User) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(toUserRow(u)).Error
	if isUniqueViolation(err) {
		return &core.DuplicateEmailError{TenantID: u.TenantID, Email: core.NormalizeEmail(u.Email)}
	}
	return err
}

// GetUser fetches a user by id.
func (s *Store) GetUser(id string) (*core.User, error) {
	var row userRow
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return fromUserRow(&row), nil
}

// ListUsers returns the users of one tenant ordered by creation time.
func (s *Store) ListUsers(tenantID string) ([]*core.User, error) {
	var rows []userRow
	if err := s.db.Where("tenant_id = ?", tenantID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]*core.User, len(rows))
	for i := range rows {
		users[i] = fromUserRow(&rows[i])
	}
	return users, nil
}

// ListAllUsers returns every user across all tenants.
func (s *Store) ListAllUsers() ([]*core.User, error) {
	var rows []userRow
	if err := s.db.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]*core.User, len(rows))
	for i := range rows {
		users[i] = fromUserRow(&rows[i])
	}
	return users, nil
}

// GetUsage returns the tenant's counter for the period, or a zero counter.
func (s *Store) GetUsage(tenantID string, period time.Time) (*core.UsageCounter, error) {
	var row usageRow
	err := s.db.First(&row, "tenant_id = ? AND period_start = ?", tenantID, period).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &core.UsageCounter{TenantID: tenantID, PeriodStart: period}, nil
	}
	if err != nil {
		return nil, err
	}
	return &core.UsageCounter{
		TenantID:     row.TenantID,
		PeriodStart:  row.PeriodStart,
		APICalls:     row.APICalls,
		StorageBytes: row.StorageBytes,
		Executions:   row.Executions,
	}, nil
}

// AddUsage applies the delta with one upsert whose conflict arm is a
// relative UPDATE, so concurrent increments cannot lose updates.
func (s *Store) AddUsage(tenantID string, period time.Time, delta core.UsageDelta) (*core.UsageCounter, error) {
	row := usageRow{
		TenantID:     tenantID,
		PeriodStart:  period,
		APICalls:     delta.APICalls,
		StorageBytes: delta.StorageBytes,
		Executions:   delta.Executions,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "period_start"}},
		DoUpdates: clause.Assignments(map[string]any{
			"api_calls":     gorm.Expr("usage_counters.api_calls + ?", delta.APICalls),
			"storage_bytes": gorm.Expr("usage_counters.storage_bytes + ?", delta.StorageBytes),
			"executions":    gorm.Expr("usage_counters.executions + ?", delta.Executions),
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return s.GetUsage(tenantID, period)
}

// PutAutomation upserts an automation definition.
func (s *Store) PutAutomation(a *core.Automation) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(toAutomationRow(a)).Error
}

// GetAutomation fetches an automation by id.
func (s *Store) GetAutomation(id string) (*core.Automation, error) {
	var row automationRow
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("automation %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return fromAutomationRow(&row), nil
}

// DeleteAutomation removes a definition; execution rows are retained.
func (s *Store) DeleteAutomation(id string) error {
	res := s.db.Delete(&automationRow{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("automation %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// ListAutomations returns the automations of one tenant ordered by creation time.
func (s *Store) ListAutomations(tenantID string) ([]*core.Automation, error) {
	var rows []automationRow
	if err := s.db.Where("tenant_id = ?", tenantID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	automations := make([]*core.Automation, len(rows))
	for i := range rows {
		automations[i] = fromAutomationRow(&rows[i])
	}
	return automations, nil
}

// ListByTrigger returns the automations of one tenant with the given trigger kind.
func (s *Store) ListByTrigger(tenantID string, kind core.TriggerKind) ([]*core.Automation, error) {
	var rows []automationRow
	if err := s.db.Where("tenant_id = ? AND trigger_kind = ?", tenantID, string(kind)).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	automations := make([]*core.Automation, len(rows))
	for i := range rows {
		automations[i] = fromAutomationRow(&rows[i])
	}
	return automations, nil
}

// MarkExecuted increments the counter with a relative UPDATE.
func (s *Store) MarkExecuted(id string, at time.Time) error {
	res := s.db.Model(&automationRow{}).Where("id = ?", id).Updates(map[string]any{
		"execution_count":  gorm.Expr("execution_count + 1"),
		"last_executed_at": at,
		"updated_at":       at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("automation %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// AppendExecution inserts a new execution record.
func (s *Store) AppendExecution(rec *core.ExecutionRecord) error {
	return s.db.Create(toExecutionRow(rec)).Error
}

// UpdateExecution replaces a previously appended record.
func (s *Store) UpdateExecution(rec *core.ExecutionRecord) error {
	res := s.db.Model(&executionRow{}).Where("id = ?", rec.ID).Updates(toExecutionRow(rec))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("execution %s: %w", rec.ID, core.ErrNotFound)
	}
	return nil
}

// ListExecutions returns up to limit records, most recent first.
func (s *Store) ListExecutions(automationID string, limit int) ([]*core.ExecutionRecord, error) {
	var rows []executionRow
	if err := s.db.Where("automation_id = ?", automationID).Order("created_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]*core.ExecutionRecord, len(rows))
	for i := range rows {
		records[i] = fromExecutionRow(&rows[i])
	}
	return records, nil
}
