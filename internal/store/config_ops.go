package store

import "github.com/qctl/queuectl/internal/config"

// ConfigAll implements config.KVStore.
func (s *Store) ConfigAll() (map[string]string, error) {
	rows, err := s.db.Query(`select key, value from config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// ConfigSet implements config.KVStore.
func (s *Store) ConfigSet(key, value string) error {
	_, err := s.db.Exec(
		`insert into config (key, value) values (?, ?)
		 on conflict(key) do update set value = excluded.value`,
		key, value,
	)
	return err
}

// SeedDefaults writes the defaults for any config key not yet present.
// Called by the `init` command so a fresh database has explicit rows rather
// than relying solely on in-process defaults.
func (s *Store) SeedDefaults() error {
	existing, err := s.ConfigAll()
	if err != nil {
		return err
	}
	for k, v := range config.Defaults() {
		if _, ok := existing[k]; !ok {
			if err := s.ConfigSet(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}
