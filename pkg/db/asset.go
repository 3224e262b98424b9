package db

// Asset is a loaded resource. Assets are shared between everyone who asks
// for the same id and must be treated as read-only.
type Asset interface {
	Id() LocalId
	Kind() Kind
	Database() *Database
}

type assetBase struct {
	db *Database
	id LocalId
}

func (a *assetBase) Id() LocalId {
	return a.id
}

func (a *assetBase) Database() *Database {
	return a.db
}
