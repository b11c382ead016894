package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ifuryst/agencylens/internal/models"
	"github.com/ifuryst/agencylens/internal/repository"
	"github.com/ifuryst/agencylens/internal/service/credential"
)

// PairStatus is the sync health of one (company, platform)
type PairStatus struct {
	CompanyID           string          `json:"companyId"`
	CompanyName         string          `json:"companyName"`
	Platform            models.Platform `json:"platform"`
	LastSuccessAt       *time.Time      `json:"lastSuccessAt"`
	LastAttemptAt       *time.Time      `json:"lastAttemptAt"`
	ConsecutiveFailures int             `json:"consecutiveFailures"`
	LastError           *string         `json:"lastError"`
}

type ServedCompany struct {
	CompanyID   string          `json:"companyId"`
	CompanyName string          `json:"companyName"`
	Platform    models.Platform `json:"platform"`
}

// TokenHealth describes one OAuth credential and what it serves
type TokenHealth struct {
	CredentialID uint            `json:"credentialId"`
	Provider     string          `json:"provider"`
	AccountEmail string          `json:"accountEmail"`
	ExpiresAt    *time.Time      `json:"expiresAt"`
	IsExpired    bool            `json:"isExpired"`
	ExpiresSoon  bool            `json:"expiresSoon"`
	Companies    []ServedCompany `json:"companies"`
}

type StatusReport struct {
	Timestamp   time.Time     `json:"timestamp"`
	Statuses    []PairStatus  `json:"statuses"`
	TokenHealth []TokenHealth `json:"tokenHealth"`
}

// StatusService builds the operator view of sync and token health
type StatusService struct {
	companies   repository.CompanyRepo
	statuses    repository.SyncStatusRepo
	mappings    repository.MappingRepo
	credentials repository.CredentialRepo
	now         func() time.Time
	logger      *zap.Logger
}

func NewStatusService(
	companies repository.CompanyRepo,
	statuses repository.SyncStatusRepo,
	mappings repository.MappingRepo,
	credentials repository.CredentialRepo,
	now func() time.Time,
	logger *zap.Logger,
) *StatusService {
	if now == nil {
		now = time.Now
	}
	return &StatusService{
		companies:   companies,
		statuses:    statuses,
		mappings:    mappings,
		credentials: credentials,
		now:         now,
		logger:      logger,
	}
}

func (s *StatusService) Report(ctx context.Context) (*StatusReport, error) {
	var (
		companies []models.Company
		statuses  []models.SyncStatus
		mappings  []models.PlatformMapping
		creds     []models.OAuthCredential
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		companies, err = s.companies.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		statuses, err = s.statuses.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		mappings, err = s.mappings.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		creds, err = s.credentials.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load sync status: %w", err)
	}

	names := make(map[string]string, len(companies))
	for _, c := range companies {
		names[c.ID] = c.Name
	}

	pairs := make([]PairStatus, 0, len(statuses))
	for _, st := range statuses {
		pairs = append(pairs, PairStatus{
			CompanyID:           st.CompanyID,
			CompanyName:         names[st.CompanyID],
			Platform:            st.Platform,
			LastSuccessAt:       st.LastSuccessAt,
			LastAttemptAt:       st.LastAttemptAt,
			ConsecutiveFailures: st.ConsecutiveFailures,
			LastError:           st.LastError,
		})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].CompanyName != pairs[j].CompanyName {
			return pairs[i].CompanyName < pairs[j].CompanyName
		}
		return pairs[i].Platform < pairs[j].Platform
	})

	served := make(map[uint][]ServedCompany)
	for _, m := range mappings {
		served[m.CredentialID] = append(served[m.CredentialID], ServedCompany{
			CompanyID:   m.CompanyID,
			CompanyName: names[m.CompanyID],
			Platform:    m.Platform,
		})
	}

	now := s.now()
	health := make([]TokenHealth, 0, len(creds))
	for i := range creds {
		cred := &creds[i]
		companies := served[cred.ID]
		if companies == nil {
			companies = []ServedCompany{}
		}
		health = append(health, TokenHealth{
			CredentialID: cred.ID,
			Provider:     cred.Provider,
			AccountEmail: cred.AccountEmail,
			ExpiresAt:    cred.ExpiresAt,
			IsExpired:    credential.Expired(cred, now),
			ExpiresSoon:  credential.ExpiresSoon(cred, now),
			Companies:    companies,
		})
	}

	return &StatusReport{
		Timestamp:   now.UTC(),
		Statuses:    pairs,
		TokenHealth: health,
	}, nil
}
