// Package pg bootstraps PostgreSQL access with pgx/v5: a retrying pool
// constructor, goose migrations from an fs.FS, a readiness check and error
// classification helpers.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, slog.Default()); err != nil {
//	    return err
//	}
//
// Migrations are usually embedded next to the code that uses the schema.
// Migrate sets goose's package-level state, so run it once at startup.
package pg
