package service

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"content_import/internal/config"
	"content_import/internal/domain"
	"content_import/internal/driver"
	"content_import/internal/service/mocks"
)

type RunnerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	importers *mocks.MockImporterStore
	contents  *mocks.MockContentStore
	tags      *mocks.MockTagStore
	files     *mocks.MockFileStore
	drivers   *mocks.MockDrivers
	driver    *mocks.MockDriver
	txManager *mocks.MockTransactionManager
	publisher *mocks.MockPublisher

	runner *Runner
	cfg    config.ImportConfig
	now    time.Time
	model  *domain.ContentModel
}

func (s *RunnerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.importers = mocks.NewMockImporterStore(s.ctrl)
	s.contents = mocks.NewMockContentStore(s.ctrl)
	s.tags = mocks.NewMockTagStore(s.ctrl)
	s.files = mocks.NewMockFileStore(s.ctrl)
	s.drivers = mocks.NewMockDrivers(s.ctrl)
	s.driver = mocks.NewMockDriver(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.cfg = config.ImportConfig{
		MaxErrors:   13,
		MaxItems:    10,
		DelayErrors: 120,
	}
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.model = &domain.ContentModel{Name: "article", Fields: []string{domain.FieldTitle, domain.FieldTags}}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.runner = NewRunner(
		s.importers,
		s.contents,
		s.tags,
		s.files,
		s.drivers,
		s.txManager,
		s.publisher,
		logger,
		s.cfg,
	)
	s.runner.now = func() time.Time { return s.now }

	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()
	s.driver.EXPECT().Name().Return("rss").AnyTimes()
}

func (s *RunnerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestRunnerTestSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (s *RunnerTestSuite) importer(id int64) domain.Importer {
	return domain.Importer{
		ID:              id,
		Driver:          "rss",
		DriverOpts:      map[string]string{"url": "https://e.com/rss"},
		ContentModel:    "article",
		ContentAuthor:   "editor",
		ContentSection:  1,
		ContentStatus:   "published",
		ContentLanguage: "en",
		Enabled:         true,
	}
}

func (s *RunnerTestSuite) content(title string) *domain.Content {
	c := domain.NewContent(s.model)
	c.Title = title
	c.Language = "en"
	c.ExtLinks = []string{"https://e.com/" + title}
	return c
}

// candidates yields items and counts how many were pulled.
func candidates(pulled *int, items ...*domain.Content) iter.Seq2[*domain.Content, error] {
	return func(yield func(*domain.Content, error) bool) {
		for _, c := range items {
			*pulled++
			if !yield(c, nil) {
				return
			}
		}
	}
}

func failing(err error, before ...*domain.Content) iter.Seq2[*domain.Content, error] {
	return func(yield func(*domain.Content, error) bool) {
		for _, c := range before {
			if !yield(c, nil) {
				return
			}
		}
		yield(nil, err)
	}
}

// expectSave captures the importer state written back.
func (s *RunnerTestSuite) expectSave() *domain.Importer {
	saved := &domain.Importer{}
	s.importers.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, imp *domain.Importer) error {
			*saved = *imp
			return nil
		},
	)
	return saved
}

func (s *RunnerTestSuite) expectStored(n int) {
	id := int64(100)
	s.contents.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Content) error {
			id++
			c.ID = id
			return nil
		},
	).Times(n)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(n)
}

func (s *RunnerTestSuite) TestRun_NoDueImporters() {
	ctx := context.Background()
	s.importers.EXPECT().FindDue(ctx, s.now).Return(nil, nil)

	stats, err := s.runner.Run(ctx)

	s.NoError(err)
	s.Zero(stats.Importers)
	s.Zero(stats.Imported)
}

func (s *RunnerTestSuite) TestRun_FindDueError() {
	ctx := context.Background()
	s.importers.EXPECT().FindDue(ctx, s.now).Return(nil, errors.New("db down"))

	stats, err := s.runner.Run(ctx)

	s.Nil(stats)
	s.ErrorContains(err, "db down")
}

func (s *RunnerTestSuite) TestRun_ImportsCandidates() {
	ctx := context.Background()
	imp := s.importer(1)
	failedBefore := "old failure"
	imp.Errors = 3
	imp.LastError = &failedBefore

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)

	var pulled int
	s.driver.EXPECT().Fetch(gomock.Any(), driver.OptionsFor(&imp)).Return(
		candidates(&pulled, s.content("a"), s.content("b")), nil,
	)

	s.expectStored(2)
	saved := s.expectSave()

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Importers)
	s.Equal(1, stats.Succeeded)
	s.Equal(2, stats.Imported)
	s.Zero(stats.Failed)

	s.Zero(saved.Errors)
	s.True(saved.Enabled)
	s.Require().NotNil(saved.LastError)
	s.Equal("old failure", *saved.LastError)
}

func (s *RunnerTestSuite) TestRun_PublishesImportEvent() {
	ctx := context.Background()
	imp := s.importer(1)
	c := s.content("a")

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	var pulled int
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(candidates(&pulled, c), nil)
	s.contents.EXPECT().Save(gomock.Any(), c).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), domain.ImportEvent{Driver: "rss", Content: c}).Return(nil)
	s.expectSave()

	_, err := s.runner.Run(ctx)
	s.NoError(err)
}

func (s *RunnerTestSuite) TestRun_PublishFailureIsNotPersistFailure() {
	ctx := context.Background()
	imp := s.importer(1)

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	var pulled int
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(candidates(&pulled, s.content("a")), nil)
	s.contents.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker gone"))
	s.expectSave()

	stats, err := s.runner.Run(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Imported)
	s.Zero(stats.PersistFailures)
}

func (s *RunnerTestSuite) TestRun_AddsImporterTags() {
	ctx := context.Background()
	imp := s.importer(1)
	imp.AddTags = []string{"imported", "feeds"}
	c := s.content("a")

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	var pulled int
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(candidates(&pulled, c), nil)
	s.tags.EXPECT().Dispense(gomock.Any(), "imported", "en").Return(&domain.Tag{ID: 1, Title: "imported"}, nil)
	s.tags.EXPECT().Dispense(gomock.Any(), "feeds", "en").Return(&domain.Tag{ID: 2, Title: "feeds"}, nil)
	s.expectStored(1)
	s.expectSave()

	_, err := s.runner.Run(ctx)
	s.Require().NoError(err)
	s.Equal([]domain.Tag{{ID: 1, Title: "imported"}, {ID: 2, Title: "feeds"}}, c.Tags)
}

func (s *RunnerTestSuite) TestRun_SkipsImporterTagsWithoutTagsField() {
	ctx := context.Background()
	imp := s.importer(1)
	imp.AddTags = []string{"imported"}
	c := s.content("a")
	c.Model = &domain.ContentModel{Name: "brief", Fields: []string{domain.FieldTitle}}

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	var pulled int
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(candidates(&pulled, c), nil)
	s.expectStored(1)
	s.expectSave()

	_, err := s.runner.Run(ctx)
	s.Require().NoError(err)
	s.Empty(c.Tags)
}

func (s *RunnerTestSuite) TestRun_IterationErrorPausesImporter() {
	ctx := context.Background()
	imp := s.importer(1)

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(
		failing(errors.New("fetch feed: timeout"), s.content("a")), nil,
	)
	s.expectStored(1)
	saved := s.expectSave()

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(1, stats.Imported)

	s.Equal(1, saved.Errors)
	s.True(saved.Enabled)
	s.Require().NotNil(saved.PausedTill)
	s.Equal(s.now.Add(120*time.Minute), *saved.PausedTill)
	s.Require().NotNil(saved.LastError)
	s.Contains(*saved.LastError, "fetch feed: timeout")
	s.Contains(*saved.LastError, "importer 1 (rss)")
}

func (s *RunnerTestSuite) TestRun_DisablesAfterMaxErrors() {
	ctx := context.Background()
	imp := s.importer(1)
	imp.Errors = 12

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(failing(errors.New("boom")), nil)
	saved := s.expectSave()

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(1, stats.Disabled)
	s.Equal(13, saved.Errors)
	s.False(saved.Enabled)
}

func (s *RunnerTestSuite) TestRun_FetchSetupErrorCountsAsFailure() {
	ctx := context.Background()
	imp := s.importer(1)

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, domain.ErrSchemaMismatch)
	saved := s.expectSave()

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(1, saved.Errors)
	s.Contains(*saved.LastError, domain.ErrSchemaMismatch.Error())
}

func (s *RunnerTestSuite) TestRun_UnknownDriver() {
	ctx := context.Background()
	imp := s.importer(1)
	imp.Driver = "atom"

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("atom").Return(nil, domain.ErrDriverNotFound)
	saved := s.expectSave()

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(1, saved.Errors)
	s.Contains(*saved.LastError, "driver not found")
}

func (s *RunnerTestSuite) TestRun_DriverPanicIsRecovered() {
	ctx := context.Background()
	imp := s.importer(1)

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(
		iter.Seq2[*domain.Content, error](func(func(*domain.Content, error) bool) {
			panic("nil map")
		}), nil,
	)
	saved := s.expectSave()

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Failed)
	s.Contains(*saved.LastError, "panic: nil map")
	s.False(s.runner.running.Load())
}

func (s *RunnerTestSuite) TestRun_PersistFailureIsNotCounted() {
	ctx := context.Background()
	imp := s.importer(1)
	bad := s.content("bad")
	bad.Images = []domain.File{{ID: 7, Key: "x.jpg"}}
	good := s.content("good")

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	var pulled int
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(candidates(&pulled, bad, good), nil)

	s.contents.EXPECT().Save(gomock.Any(), bad).Return(errors.New("unique violation"))
	s.files.EXPECT().Delete(gomock.Any(), &domain.File{ID: 7, Key: "x.jpg"}).Return(nil)
	s.contents.EXPECT().Save(gomock.Any(), good).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	saved := s.expectSave()

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Succeeded)
	s.Equal(1, stats.Imported)
	s.Equal(1, stats.PersistFailures)
	s.Zero(saved.Errors)
	s.Empty(bad.Images)
}

func (s *RunnerTestSuite) TestRun_StopsAtMaxItems() {
	ctx := context.Background()
	s.runner.config.MaxItems = 2
	imp := s.importer(1)

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	var pulled int
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(
		candidates(&pulled, s.content("a"), s.content("b"), s.content("c"), s.content("d")), nil,
	)
	s.expectStored(2)
	s.expectSave()

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(2, stats.Imported)
	s.Equal(2, pulled)
}

func (s *RunnerTestSuite) TestRun_FailureDoesNotStopOtherImporters() {
	ctx := context.Background()
	first := s.importer(1)
	second := s.importer(2)

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{first, second}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil).Times(2)

	var pulled int
	gomock.InOrder(
		s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(failing(errors.New("boom")), nil),
		s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(candidates(&pulled, s.content("a")), nil),
	)
	s.expectStored(1)

	var savedIDs []int64
	s.importers.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, imp *domain.Importer) error {
			savedIDs = append(savedIDs, imp.ID)
			return nil
		},
	).Times(2)

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(2, stats.Importers)
	s.Equal(1, stats.Failed)
	s.Equal(1, stats.Succeeded)
	s.Equal([]int64{1, 2}, savedIDs)
}

func (s *RunnerTestSuite) TestRun_SlowImporterTimesOutAndOthersRun() {
	ctx := context.Background()
	s.runner.config.ImporterTimeout = 50 * time.Millisecond

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{s.importer(1), s.importer(2)}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil).Times(2)

	var pulled int
	gomock.InOrder(
		s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ driver.Options) (iter.Seq2[*domain.Content, error], error) {
				return func(yield func(*domain.Content, error) bool) {
					<-ctx.Done()
					yield(nil, ctx.Err())
				}, nil
			},
		),
		s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(candidates(&pulled, s.content("a")), nil),
	)
	s.expectStored(1)

	saved := map[int64]domain.Importer{}
	s.importers.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, imp *domain.Importer) error {
			s.NoError(ctx.Err())
			saved[imp.ID] = *imp
			return nil
		},
	).Times(2)

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(1, stats.Succeeded)
	s.Equal(1, stats.Imported)

	s.Equal(1, saved[1].Errors)
	s.Require().NotNil(saved[1].LastError)
	s.Contains(*saved[1].LastError, context.DeadlineExceeded.Error())
	s.Require().NotNil(saved[1].PausedTill)
	s.Equal(s.now.Add(120*time.Minute), *saved[1].PausedTill)
	s.Zero(saved[2].Errors)
}

func (s *RunnerTestSuite) TestRun_TimeoutAfterLastCandidateIsFailure() {
	ctx := context.Background()
	s.runner.config.ImporterTimeout = 20 * time.Millisecond

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{s.importer(1)}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(
		iter.Seq2[*domain.Content, error](func(yield func(*domain.Content, error) bool) {
			time.Sleep(40 * time.Millisecond)
		}), nil,
	)
	saved := s.expectSave()

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(1, saved.Errors)
	s.Require().NotNil(saved.LastError)
	s.Contains(*saved.LastError, "timed out after 20ms")
}

func (s *RunnerTestSuite) TestRun_SaveStateErrorIsLogged() {
	ctx := context.Background()
	imp := s.importer(1)

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	var pulled int
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(candidates(&pulled), nil)
	s.importers.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	stats, err := s.runner.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, stats.Succeeded)
}

func (s *RunnerTestSuite) TestRun_CancelledContextDoesNotRecordFailure() {
	ctx, cancel := context.WithCancel(context.Background())
	imp := s.importer(1)

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp, s.importer(2)}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ driver.Options) (iter.Seq2[*domain.Content, error], error) {
			cancel()
			return failing(ctx.Err()), nil
		},
	)

	stats, err := s.runner.Run(ctx)

	s.ErrorIs(err, context.Canceled)
	s.Require().NotNil(stats)
	s.Zero(stats.Failed)
}

func (s *RunnerTestSuite) TestRun_SkipsWhileRunning() {
	s.runner.running.Store(true)

	stats, err := s.runner.Run(context.Background())

	s.Nil(stats)
	s.ErrorIs(err, domain.ErrRunInProgress)
}

func (s *RunnerTestSuite) TestRun_OverlappingTickIsSkipped() {
	ctx := context.Background()
	imp := s.importer(1)
	started := make(chan struct{})
	release := make(chan struct{})

	s.importers.EXPECT().FindDue(ctx, s.now).Return([]domain.Importer{imp}, nil)
	s.drivers.EXPECT().Get("rss").Return(s.driver, nil)
	s.driver.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(
		iter.Seq2[*domain.Content, error](func(func(*domain.Content, error) bool) {
			close(started)
			<-release
		}), nil,
	)
	s.expectSave()

	done := make(chan error, 1)
	go func() {
		_, err := s.runner.Run(ctx)
		done <- err
	}()

	<-started
	_, err := s.runner.Run(ctx)
	s.ErrorIs(err, domain.ErrRunInProgress)

	close(release)
	s.NoError(<-done)
	s.False(s.runner.running.Load())
}
