// Package repository holds the gorm-backed stores. Each store is an interface
// so services can be tested against in-memory fakes.
package repository

import "gorm.io/gorm"

// Repositories bundles every store built on one connection
type Repositories struct {
	Companies   CompanyRepo
	Members     MemberRepo
	Mappings    MappingRepo
	Credentials CredentialRepo
	SyncStatus  SyncStatusRepo
	Metrics     MetricRepo
	Cache       CacheEntryRepo
	Runs        RunRepo
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Companies:   NewCompanyRepository(db),
		Members:     NewMemberRepository(db),
		Mappings:    NewMappingRepository(db),
		Credentials: NewCredentialRepository(db),
		SyncStatus:  NewSyncStatusRepository(db),
		Metrics:     NewMetricRepository(db),
		Cache:       NewCacheEntryRepository(db),
		Runs:        NewRunRepository(db),
	}
}
