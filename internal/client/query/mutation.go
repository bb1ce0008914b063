package query

// snapshotEntry — состояние одного ключа на момент снимка.
type snapshotEntry struct {
	data    any
	existed bool
}

// Snapshot — снимок значений набора ключей перед оптимистичной правкой.
// Восстанавливается через Restore при откате неудачной мутации.
type Snapshot map[string]snapshotEntry

// Snapshot снимает текущее содержимое переданных ключей.
func (c *Cache) Snapshot(keys ...string) Snapshot {
	snap := make(Snapshot, len(keys))
	for _, key := range keys {
		data, exists := c.Get(key)
		snap[key] = snapshotEntry{data: data, existed: exists}
	}
	return snap
}

// Restore возвращает ключи к содержимому снимка: существовавшие
// значения записываются обратно, появившиеся после снимка — удаляются.
func (c *Cache) Restore(snap Snapshot) {
	for key, prev := range snap {
		if prev.existed {
			c.Set(key, prev.data)
		} else {
			c.Remove(key)
		}
	}
}
