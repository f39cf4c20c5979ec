package indexer

// Kind classifies an asset-type folder inside a pack group.
type Kind int

const (
	// KindResources is the generic recursive indexer for any folder
	// without a dedicated handler.
	KindResources Kind = iota
	KindLang
	KindFonts
	KindPatchData
	KindEntities

	numKinds
)

var kindFolders = [numKinds]string{
	KindResources: "",
	KindLang:      "lang",
	KindFonts:     "fonts",
	KindPatchData: "patchdata",
	KindEntities:  "entities",
}

// KindOf maps an asset-type folder name to its Kind.
func KindOf(folder string) Kind {
	for k := KindLang; k < numKinds; k++ {
		if kindFolders[k] == folder {
			return k
		}
	}
	return KindResources
}

func (k Kind) String() string {
	if k == KindResources {
		return "resources"
	}
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindFolders[k]
}

// handler indexes one asset-type folder of one group.
type handler func(b *build, group, folder string)

// handlers has exactly one entry per Kind.
var handlers = [numKinds]handler{
	KindResources: (*build).indexResources,
	KindLang:      (*build).loadLang,
	KindFonts:     (*build).indexFonts,
	KindPatchData: (*build).cachePatchData,
	KindEntities:  (*build).cacheEntities,
}

// patchCategories are the gamemode subfolders whose JSON files are content-cached.
var patchCategories = []string{"characters", "units", "items", "misc", "map"}
