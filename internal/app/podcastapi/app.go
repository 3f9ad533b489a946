package podcastapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	log "github.com/go-pkgz/lgr"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"podcastapi/internal/app/podcastapi/podcast"
	"podcastapi/internal/app/podcastapi/proc"
	"podcastapi/internal/app/podcastapi/rest"
	"podcastapi/internal/configs"
)

// App is the podcast api service
type App struct {
	config    *configs.Conf
	processor *proc.Processor
	closers   []func() error
}

// NewApplication makes app with store, file backend and event dispatcher from conf
func NewApplication(ctx context.Context, conf *configs.Conf) (*App, error) {
	app := &App{config: conf}

	store, err := proc.OpenSQLStore(ctx, conf.Database.Driver, conf.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("can't open store: %w", err)
	}
	app.closers = append(app.closers, store.Close)

	files, err := app.newBlobs()
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	events := proc.NewDispatcher(conf.Events.Timeout)
	recorder := &proc.DownloadRecorder{Storage: store}
	events.Subscribe(podcast.EpisodeDownloadedName, recorder.Handle)

	app.processor = &proc.Processor{Storage: store, Files: files, Probe: &proc.AudioProbe{}, Events: events}
	return app, nil
}

func (a *App) newBlobs() (proc.Blobs, error) {
	switch a.config.Storage.Backend {
	case configs.BackendS3:
		cs := a.config.CloudStorage
		client, err := NewS3Client(cs.EndPointURL, cs.Secrets.Key, cs.Secrets.Secret, cs.Region, cs.Secure)
		if err != nil {
			return nil, fmt.Errorf("can't create s3client instance: %w", err)
		}
		return &proc.S3Store{Client: client, Location: cs.Region, Bucket: cs.Bucket}, nil
	case configs.BackendBolt:
		db, err := NewBoltDB(a.config.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("can't create boltdb instance: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return &proc.BoltBlobs{DB: db, BaseURL: a.config.Storage.PublicURL}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.config.Storage.Backend)
}

// Processor of the app
func (a *App) Processor() *proc.Processor {
	return a.processor
}

// Handler is the http handler of the api
func (a *App) Handler() http.Handler {
	srv := &rest.Server{
		Processor:      a.processor,
		RequestTimeout: a.config.Server.RequestTimeout,
		MaxUploadSize:  a.config.Server.MaxUploadSize,
	}
	return srv.Handler()
}

// Run serves http until ctx is canceled
func (a *App) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              a.config.Server.Listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] http shutdown, %v", err)
		}
	}()

	log.Printf("[INFO] listening on %s", a.config.Server.Listen)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close waits for pending events and closes store and file backend
func (a *App) Close() error {
	var errs []error
	if a.processor != nil && a.processor.Events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Events.Timeout)
		errs = append(errs, a.processor.Events.Close(ctx))
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// NewBoltDB opens bolt db file, the directory is created when missing
func NewBoltDB(dbFile string) (*bolt.DB, error) {
	if dir := filepath.Dir(dbFile); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	return bolt.Open(dbFile, 0o600, &bolt.Options{Timeout: 1 * time.Second})
}

// NewS3Client makes minio client for endpoint
func NewS3Client(endpoint, key, secret, region string, secure bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(key, secret, ""),
		Secure: secure,
		Region: region,
	})
}
