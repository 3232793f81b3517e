package prefs

// LastShown adapts a Repository to the registry's last-shown-server
// contract: a single process-wide slot, written on every successful
// show and cleared only when that exact server is removed.
type LastShown struct {
	Repo Repository
}

func (l LastShown) LastShownServer() (string, error) {
	return l.Repo.Get(KeyLastShownServer)
}

func (l LastShown) SetLastShownServer(id string) error {
	return l.Repo.Set(KeyLastShownServer, id)
}

func (l LastShown) ClearLastShownServer() error {
	return l.Repo.Delete(KeyLastShownServer)
}
