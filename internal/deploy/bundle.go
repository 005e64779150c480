package deploy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/watzon/waypost/internal/functions"
	"github.com/watzon/waypost/internal/manifest"
)

// Bundler creates hashed deployment bundles from the manifest and its
// functions directory.
type Bundler struct {
	manifestPath string
	registry     *functions.Registry
}

// NewBundler creates a bundler. The registry must already have discovered
// its functions.
func NewBundler(manifestPath string, registry *functions.Registry) *Bundler {
	return &Bundler{
		manifestPath: manifestPath,
		registry:     registry,
	}
}

// CreateBundle parses the manifest and hashes it together with every
// discovered function file.
func (b *Bundler) CreateBundle() (*Bundle, error) {
	raw, err := os.ReadFile(b.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", manifest.ErrManifestNotFound, b.manifestPath)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Manifest:     m,
		ManifestRaw:  string(raw),
		ManifestHash: hashBytes(raw),
	}

	infos, err := b.snapshotFunctions()
	if err != nil {
		return nil, err
	}
	bundle.Functions = infos
	bundle.FunctionsHash = combinedHash(infos)

	return bundle, nil
}

func (b *Bundler) snapshotFunctions() ([]*FunctionInfo, error) {
	fns := b.registry.List()
	infos := make([]*FunctionInfo, 0, len(fns))

	for _, fn := range fns {
		hash, size, err := hashFile(fn.Path)
		if err != nil {
			return nil, fmt.Errorf("hashing function %s: %w", fn.Name, err)
		}
		infos = append(infos, &FunctionInfo{
			Name:    fn.Name,
			Runtime: string(fn.Runtime),
			Hash:    hash,
			Path:    fn.Path,
			Size:    size,
		})
	}

	// Registry.List is sorted, but keep the invariant local.
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

// DiffFunctions compares two function snapshots. Removals are flagged
// unsafe: a rewrite rule may still target the removed function.
func DiffFunctions(local, previous []*FunctionInfo) []*FunctionChange {
	var changes []*FunctionChange

	localMap := make(map[string]*FunctionInfo, len(local))
	for _, f := range local {
		localMap[f.Name] = f
	}
	prevMap := make(map[string]*FunctionInfo, len(previous))
	for _, f := range previous {
		prevMap[f.Name] = f
	}

	for name, lf := range localMap {
		pf, exists := prevMap[name]
		if !exists {
			changes = append(changes, &FunctionChange{
				Type:    FunctionAdd,
				Name:    name,
				Runtime: lf.Runtime,
				NewHash: lf.Hash,
				Safe:    true,
				Reason:  "new function",
			})
			continue
		}
		if lf.Hash != pf.Hash {
			changes = append(changes, &FunctionChange{
				Type:    FunctionModify,
				Name:    name,
				Runtime: lf.Runtime,
				OldHash: pf.Hash,
				NewHash: lf.Hash,
				Safe:    true,
				Reason:  "function code changed",
			})
		}
	}

	for name, pf := range prevMap {
		if _, exists := localMap[name]; !exists {
			changes = append(changes, &FunctionChange{
				Type:    FunctionRemove,
				Name:    name,
				Runtime: pf.Runtime,
				OldHash: pf.Hash,
				Safe:    false,
				Reason:  "function removed - redirect rules may still target it",
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Name < changes[j].Name
	})

	return changes
}

// SerializeFunctions serializes a function snapshot for storage.
func SerializeFunctions(infos []*FunctionInfo) (string, error) {
	if len(infos) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(infos)
	if err != nil {
		return "", fmt.Errorf("serializing functions: %w", err)
	}
	return string(data), nil
}

// DeserializeFunctions restores a stored function snapshot.
func DeserializeFunctions(data string) ([]*FunctionInfo, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var infos []*FunctionInfo
	if err := json.Unmarshal([]byte(data), &infos); err != nil {
		return nil, fmt.Errorf("deserializing functions: %w", err)
	}
	return infos, nil
}

func combinedHash(infos []*FunctionInfo) string {
	if len(infos) == 0 {
		return ""
	}
	parts := make([]string, 0, len(infos))
	for _, f := range infos {
		parts = append(parts, fmt.Sprintf("%s:%s:%s", f.Name, f.Runtime, f.Hash))
	}
	return hashBytes([]byte(strings.Join(parts, "|")))
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}

	return hex.EncodeToString(h.Sum(nil)), size, nil
}
