package domain

import "time"

// Importer is one recurring import job: a driver plus its options bound to a
// target content model.
type Importer struct {
	ID              int64             `db:"id"`
	Driver          string            `db:"driver"`
	DriverOpts      map[string]string `db:"-"`
	Description     string            `db:"description"`
	Owner           string            `db:"owner"`
	ContentModel    string            `db:"content_model"`
	ContentAuthor   string            `db:"content_author"`
	ContentSection  int64             `db:"content_section"`
	ContentStatus   string            `db:"content_status"`
	ContentLanguage string            `db:"content_language"`
	AddTags         []string          `db:"-"`

	Enabled    bool       `db:"enabled"`
	Errors     int        `db:"errors"`
	LastError  *string    `db:"last_error"`
	PausedTill *time.Time `db:"paused_till"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Due reports whether the importer should run at now.
func (i *Importer) Due(now time.Time) bool {
	if !i.Enabled {
		return false
	}
	return i.PausedTill == nil || now.After(*i.PausedTill)
}

// RecordSuccess resets the error counter after a clean run.
func (i *Importer) RecordSuccess() {
	i.Errors = 0
}

// RecordFailure bumps the error counter and either disables the importer
// (maxErrors reached) or pauses it until now+delay.
func (i *Importer) RecordFailure(err error, now time.Time, maxErrors int, delay time.Duration) {
	i.Errors++
	msg := err.Error()
	i.LastError = &msg

	if i.Errors >= maxErrors {
		i.Enabled = false
		return
	}

	till := now.Add(delay)
	i.PausedTill = &till
}
