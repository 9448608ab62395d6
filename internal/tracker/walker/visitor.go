package walker

import (
	"github.com/dl-alexandre/medialib/internal/tracker/digest"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

// AncestorVisitor folds the children of one open directory into its digest.
type AncestorVisitor struct {
	path    string
	absPath string
	depth   int
	hasher  *digest.Hasher
	files   int
}

func newAncestorVisitor(path, absPath string, depth int, self digest.Input) *AncestorVisitor {
	h := digest.NewHasher()
	h.WriteMetadata(self)
	return &AncestorVisitor{
		path:    path,
		absPath: absPath,
		depth:   depth,
		hasher:  h,
	}
}

// VisitEntry folds a non-directory child and returns its digest.
func (v *AncestorVisitor) VisitEntry(in digest.Input) status.Digest {
	d := digest.Entry(in)
	v.hasher.WriteName(in.Name)
	v.hasher.WriteDigest(d)
	if in.Kind == digest.KindFile {
		v.files++
	}
	return d
}

// VisitDirectory folds the finished digest of a child directory.
func (v *AncestorVisitor) VisitDirectory(name string, d status.Digest) {
	v.hasher.WriteName(name)
	v.hasher.WriteDigest(d)
}

// Finish returns the digest of the directory. The visitor must not be used afterwards.
func (v *AncestorVisitor) Finish() FinishedDirectory {
	return FinishedDirectory{
		Path:      v.path,
		AbsPath:   v.absPath,
		Depth:     v.depth,
		Digest:    v.hasher.Sum(),
		FileCount: v.files,
	}
}
