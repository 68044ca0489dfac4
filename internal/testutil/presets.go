package testutil

import "github.com/zjrosen/registrar/internal/catalog"

// WithStandardCatalog adds the standard test dataset.
//
// Structure:
//
//	KubernetesCluster: prod (connected), staging (disconnected), dev (available)
//	General:           notes, runbook
func (b *Builder) WithStandardCatalog() *Builder {
	return b.
		WithEntity("cluster-prod", Name("prod"), Cluster(),
			Labels("env", "prod", "region", "eu-west-1"), Phase(catalog.PhaseConnected),
			Spec("kubeconfigContext", "prod")).
		WithEntity("cluster-staging", Name("staging"), Cluster(),
			Labels("env", "staging"), Phase(catalog.PhaseDisconnected)).
		WithEntity("cluster-dev", Name("dev"), Cluster(),
			Labels("env", "dev")).
		WithEntity("general-notes", Name("notes"), Description("Team notes")).
		WithEntity("general-runbook", Name("runbook"), Labels("team", "sre"))
}

// Database is a custom category used by tests that need a third kind.
var Database = catalog.Category{
	APIVersion: "entity.registrar.dev/v1alpha1",
	Kind:       "Database",
	Metadata:   catalog.CategoryMetadata{Name: "Databases", Icon: "⛁"},
}

// WithDatabases registers the Database category with two entities.
func (b *Builder) WithDatabases() *Builder {
	return b.
		WithCategory(Database).
		WithEntity("db-orders", Name("orders"), OfCategory(Database), Labels("engine", "postgres")).
		WithEntity("db-cache", Name("cache"), OfCategory(Database), Labels("engine", "redis"))
}
