package results

func SetLogKey(key string) UpdateSetter {
	return func(r *Record) error {
		r.LogKey = key
		return nil
	}
}
