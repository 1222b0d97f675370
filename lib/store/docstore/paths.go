package docstore

import (
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/model"
)

// backend layout
const (
	rootDir   = "root"
	indexPath = rootDir + "/index"
	ownersDir = rootDir + "/owners"
)

func ownerDir(owner string) string {
	return backend.Join(ownersDir, owner)
}

func kindDir(owner string, kind model.Kind) string {
	return backend.Join(ownersDir, owner, string(kind))
}

// docPath returns the backend path of a document. Profiles live at
// root/owners/{owner}/profile, records at root/owners/{owner}/{kind}/{id}.
func docPath(owner string, kind model.Kind, id string) string {
	if kind == model.KindProfile {
		return backend.Join(ownersDir, owner, string(model.KindProfile))
	}
	return backend.Join(ownersDir, owner, string(kind), id)
}

// cache keys
func docKey(owner string, kind model.Kind, id string) string {
	return "doc:" + owner + ":" + string(kind) + ":" + id
}

func listKey(owner string, kind model.Kind) string {
	return "list:" + owner + ":" + string(kind)
}

func allKey(kind model.Kind) string {
	return "all:" + string(kind)
}

func ownerPrefixes(owner string) []string {
	return []string{"doc:" + owner + ":", "list:" + owner + ":"}
}
