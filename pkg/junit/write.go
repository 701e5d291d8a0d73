package junit

import (
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Write serializes the suite to path as indented UTF-8 XML with a declaration
// header. An existing file is overwritten with a warning, a missing parent
// directory is created. Failures are logged at error severity and returned;
// the caller decides whether siblings keep running.
func Write(log *logrus.Entry, path string, suite *TestSuite) error {
	if _, err := os.Stat(path); err == nil {
		log.Warningf("File %s already exists, will be overwritten", path)
	} else if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.WithError(err).Errorf("Cannot create file %s", path)
			return errors.Wrapf(err, "could not create report dir %s", dir)
		}
	}

	body, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		log.WithError(err).Errorf("Cannot create file %s", path)
		return errors.Wrap(err, "could not serialize report")
	}

	log.Infof("Writing JUnit XML report into: %s", path)
	if err := os.WriteFile(path, append([]byte(xml.Header), body...), 0644); err != nil {
		log.WithError(err).Errorf("Cannot create file %s", path)
		return errors.Wrapf(err, "could not write report file %s", path)
	}
	return nil
}
