// Package pg bootstraps the PostgreSQL layer behind the notification
// stores: a pgx/v5 connection pool with startup retries, goose schema
// migrations, and error helpers repositories use to translate driver
// errors into domain sentinels.
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//	    return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, logger); err != nil {
//	    return err
//	}
package pg
