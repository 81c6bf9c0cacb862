package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	shared "github.com/fitglue/garminconnect/pkg"
	"github.com/fitglue/garminconnect/pkg/domain/file_generators"
	"github.com/fitglue/garminconnect/pkg/domain/fit_parser"
	"github.com/fitglue/garminconnect/pkg/infrastructure/database"
	"github.com/fitglue/garminconnect/pkg/infrastructure/notifications"
	infrapubsub "github.com/fitglue/garminconnect/pkg/infrastructure/pubsub"
	"github.com/fitglue/garminconnect/pkg/infrastructure/secrets"
	"github.com/fitglue/garminconnect/pkg/infrastructure/sentry"
	infrastorage "github.com/fitglue/garminconnect/pkg/infrastructure/storage"
	"github.com/fitglue/garminconnect/pkg/integrations/garminconnect"
)

// Config holds standard configuration for all services
type Config struct {
	ProjectID         string
	EnablePublish     bool
	GCSArtifactBucket string
	CredentialsFile   string
	Environment       string
	SentryDSN         string

	GarminBaseURL     string
	GarminSessionTTL  time.Duration
	GarminHTTPTimeout time.Duration
	CredentialKey     string
}

// Service holds initialized dependencies
type Service struct {
	DB            shared.Database
	Store         shared.BlobStore
	Pub           shared.Publisher
	Credentials   shared.CredentialStore
	Notifications shared.NotificationService
	Garmin        *garminconnect.Service
	Config        *Config
}

// LoadConfig reads configuration from environment variables
func LoadConfig() (*Config, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = shared.ProjectID // Fallback
	}

	cfg := &Config{
		ProjectID:         projectID,
		EnablePublish:     os.Getenv("ENABLE_PUBLISH") == "true",
		GCSArtifactBucket: os.Getenv("GCS_ARTIFACT_BUCKET"),
		CredentialsFile:   os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Environment:       envOr("ENVIRONMENT", "development"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		GarminBaseURL:     envOr("GARMIN_BASE_URL", garminconnect.DefaultBaseURL),
		CredentialKey:     os.Getenv("CREDENTIAL_KEY"),
	}

	var err error
	if cfg.GarminSessionTTL, err = durationEnv("GARMIN_SESSION_TTL", garminconnect.DefaultSessionLifetime); err != nil {
		return nil, err
	}
	if cfg.GarminHTTPTimeout, err = durationEnv("GARMIN_HTTP_TIMEOUT", garminconnect.DefaultTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationEnv parses a Go duration ("45m", "30s"); unset means fallback.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

// clientOptions returns the Google API options shared by every client.
func (c *Config) clientOptions() []option.ClientOption {
	if c.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
	component string
}

// WithGroup implements slog.Handler
func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

// WithAttrs implements slog.Handler
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	comp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			comp = a.Value.String()
		}
	}
	return &ComponentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: comp,
	}
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	comp := h.component
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false
		}
		return true
	})

	if comp != "" {
		// component stays in the structured payload as well
		prefixed := slog.NewRecord(r.Time, r.Level, fmt.Sprintf("[%s] %s", comp, r.Message), r.PC)
		r.Attrs(func(a slog.Attr) bool {
			prefixed.AddAttrs(a)
			return true
		})
		r = prefixed
	}

	return h.Handler.Handle(ctx, r)
}

// ParseLevel maps LOG_LEVEL values to slog levels; unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, GetSlogHandlerOptions(ParseLevel(os.Getenv("LOG_LEVEL"))))
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// NewGarminService wires the Garmin Connect client with the FIT codecs.
func NewGarminService(ctx context.Context, cfg *Config, creds shared.CredentialStore, logger *slog.Logger) (*garminconnect.Service, error) {
	client := garminconnect.NewClient(
		garminconnect.WithBaseURL(cfg.GarminBaseURL),
		garminconnect.WithHTTPClient(&http.Client{Timeout: cfg.GarminHTTPTimeout}),
		garminconnect.WithLogger(logger.With("component", "garminconnect")),
		garminconnect.WithCache(garminconnect.NewSessionCache(cfg.GarminSessionTTL)),
		garminconnect.WithCredentialStore(creds),
		garminconnect.WithDetailParser(fit_parser.New()),
		garminconnect.WithUploadDumper(file_generators.New()),
	)
	return garminconnect.NewService(ctx, client)
}

// NewService initializes all standard dependencies
func NewService(ctx context.Context, serviceName string) (*Service, error) {
	logger := NewLogger(serviceName)
	slog.SetDefault(logger)

	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Info("Initializing service", "project_id", cfg.ProjectID)

	if err := sentry.Init(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		ServerName:  serviceName,
	}, logger); err != nil {
		return nil, err
	}

	opts := cfg.clientOptions()

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		logger.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
		if err != nil {
			logger.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		logger.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{Logger: logger}
		logger.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		logger.Error("Storage init failed", "error", err)
		return nil, fmt.Errorf("storage init: %w", err)
	}

	// Firebase messaging
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	fcm, err := notifications.NewFCMAdapter(ctx, app, fsClient, logger)
	if err != nil {
		return nil, err
	}

	creds, err := secrets.NewSecretBoxStore(cfg.CredentialKey)
	if err != nil {
		return nil, fmt.Errorf("credential store: %w", err)
	}

	garmin, err := NewGarminService(ctx, cfg, creds, logger)
	if err != nil {
		return nil, fmt.Errorf("garmin connect init: %w", err)
	}

	return &Service{
		DB:            database.NewFirestoreAdapter(fsClient),
		Store:         &infrastorage.StorageAdapter{Client: gcsClient},
		Pub:           pubAdapter,
		Credentials:   creds,
		Notifications: fcm,
		Garmin:        garmin,
		Config:        cfg,
	}, nil
}
