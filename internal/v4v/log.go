package v4v

import "github.com/sirupsen/logrus"

// defaultLogger is used by any Config that does not supply its own. Callers
// embedding this module in a larger service should call WithLogger instead
// of relying on the package default.
var defaultLogger = logrus.New()

func init() {
	defaultLogger.SetLevel(logrus.InfoLevel)
}

func ringFields(id RingID) logrus.Fields {
	return logrus.Fields{
		"domain":  id.Addr.Domain,
		"port":    id.Addr.Port,
		"partner": id.Partner,
	}
}
