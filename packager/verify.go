package packager

// Re-verification of an already built package: every tool in the
// manifest is re-hashed from the package's own files and the
// fingerprint is recomputed. Used by the verify command and by tests
// to prove round trip integrity.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	errors "github.com/go-errors/errors"

	"www.velocidex.com/golang/packrat/json"
)

func ReadManifest(package_path string) (*Manifest, error) {
	data, err := os.ReadFile(
		filepath.Join(package_path, ManifestFileName))
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	manifest := &Manifest{}
	err = json.Unmarshal(data, manifest)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	if manifest.FormatVersion != ManifestFormatVersion {
		return nil, errors.Errorf(
			"unsupported manifest format version %v",
			manifest.FormatVersion)
	}

	return manifest, nil
}

// Check the package at package_path against its own manifest.
func VerifyPackage(package_path string) (*Manifest, error) {
	manifest, err := ReadManifest(package_path)
	if err != nil {
		return nil, err
	}

	bad := []string{}
	for _, tool := range manifest.Tools {
		actual_hash, err := hashFile(
			filepath.Join(package_path, filepath.FromSlash(tool.Path)))
		if err != nil {
			bad = append(bad, fmt.Sprintf("%v (%v)", tool.Name, err))
			continue
		}

		if actual_hash != tool.Hash {
			bad = append(bad, fmt.Sprintf(
				"%v (expected %v got %v)",
				tool.Name, tool.Hash, actual_hash))
		}
	}

	for _, artifact := range manifest.Artifacts {
		_, err := os.Stat(filepath.Join(
			package_path, ArtifactsSubdir, artifact.Name+".yaml"))
		if err != nil {
			bad = append(bad, fmt.Sprintf(
				"artifact %v definition missing", artifact.Name))
		}
	}

	if len(bad) > 0 {
		return nil, &PackageIntegrityError{
			Message: "package contents do not match the manifest",
			Tools:   bad,
		}
	}

	artifact_names := []string{}
	for _, artifact := range manifest.Artifacts {
		artifact_names = append(artifact_names, artifact.Name)
	}

	fingerprint := CalculateFingerprint(artifact_names, manifest.Tools)
	if fingerprint != manifest.Fingerprint {
		return nil, &PackageIntegrityError{
			Message: fmt.Sprintf(
				"fingerprint mismatch: manifest says %v but contents hash to %v",
				manifest.Fingerprint, fingerprint),
		}
	}

	return manifest, nil
}

func hashFile(path string) (string, error) {
	fd, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	sha_sum := sha256.New()
	_, err = io.Copy(sha_sum, fd)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(sha_sum.Sum(nil)), nil
}
