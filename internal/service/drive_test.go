package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
)

func newDriveTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.SyncJob{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

type failingTokenSource struct{}

func (failingTokenSource) Token() (*oauth2.Token, error) {
	return nil, errors.New("refresh failed")
}

func TestHasChanged(t *testing.T) {
	stored := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	doc := &domain.Document{GoogleModifiedTime: stored}

	tests := []struct {
		name         string
		modifiedTime string
		want         bool
	}{
		{"newer remote", "2026-02-01T11:00:00Z", true},
		{"same timestamp", "2026-02-01T10:00:00Z", false},
		{"older remote", "2026-01-31T10:00:00Z", false},
		{"unparseable treated as changed", "not-a-time", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasChanged(doc, tt.modifiedTime); got != tt.want {
				t.Errorf("hasChanged(%q) = %v, want %v", tt.modifiedTime, got, tt.want)
			}
		})
	}
}

func TestPersistRefreshedTokens(t *testing.T) {
	db := newDriveTestDB(t)
	userRepo := repository.NewUserRepository(db)
	log := logger.New(&logger.Config{Level: "error", Format: "json"})
	svc := &DriveService{userRepo: userRepo, logger: log}

	ctx := context.Background()
	stored := domain.OAuthTokens{
		AccessToken:  "old-access",
		RefreshToken: "stored-refresh",
		TokenType:    "Bearer",
	}
	user := &domain.User{
		ID:           "user-1",
		GoogleID:     "g-1",
		Email:        "u@example.com",
		Name:         "U",
		GoogleTokens: stored,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	t.Run("refreshed token is written back", func(t *testing.T) {
		// Google refresh responses often omit the refresh token; the stored
		// one must survive.
		ts := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: "new-access",
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(time.Hour),
		})
		svc.persistRefreshedTokens(ctx, user, ts, log)

		got, err := userRepo.GetByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("get user: %v", err)
		}
		if got.GoogleTokens.AccessToken != "new-access" {
			t.Errorf("access token = %q, want new-access", got.GoogleTokens.AccessToken)
		}
		if got.GoogleTokens.RefreshToken != "stored-refresh" {
			t.Errorf("refresh token = %q, want stored-refresh", got.GoogleTokens.RefreshToken)
		}
	})

	t.Run("unchanged token skips the write", func(t *testing.T) {
		fresh := &domain.User{ID: user.ID, GoogleTokens: stored}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "old-access"})
		svc.persistRefreshedTokens(ctx, fresh, ts, log)

		got, err := userRepo.GetByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("get user: %v", err)
		}
		// Still holds the value written by the previous subtest.
		if got.GoogleTokens.AccessToken != "new-access" {
			t.Errorf("access token = %q, write should have been skipped", got.GoogleTokens.AccessToken)
		}
	})

	t.Run("token source failure leaves tokens alone", func(t *testing.T) {
		svc.persistRefreshedTokens(ctx, user, failingTokenSource{}, log)

		got, err := userRepo.GetByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("get user: %v", err)
		}
		if got.GoogleTokens.AccessToken != "new-access" {
			t.Errorf("access token = %q, want new-access", got.GoogleTokens.AccessToken)
		}
	})
}

func TestSyncUserRejectsConcurrentRun(t *testing.T) {
	db := newDriveTestDB(t)
	userRepo := repository.NewUserRepository(db)
	syncRepo := repository.NewSyncJobRepository(db)
	log := logger.New(&logger.Config{Level: "error", Format: "json"})
	svc := NewDriveService(userRepo, nil, syncRepo, nil, nil, nil, log, nil)

	ctx := context.Background()
	started := time.Now()
	if err := syncRepo.Create(ctx, &domain.SyncJob{
		ID:        "job-1",
		UserID:    "user-1",
		JobType:   domain.JobTypeDriveSync,
		Status:    domain.JobStatusRunning,
		StartedAt: &started,
	}); err != nil {
		t.Fatalf("seed running job: %v", err)
	}

	_, err := svc.SyncUser(ctx, "user-1")
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("err = %v, want ErrSyncInProgress", err)
	}
}
