package buffer_manager

import "github.com/sirupsen/logrus"

// BufferManagerOption is a functional option used to configure a BufferManager during construction.
type BufferManagerOption func(*bufferManager)

// WithLogger replaces the component logger, e.g. to add fields identifying the owner.
//
// Parameters:
//   - entry: the logrus entry to log through
//
// Returns:
//   - BufferManagerOption: a function that sets the logger
func WithLogger(entry *logrus.Entry) BufferManagerOption {
	return func(m *bufferManager) {
		if entry != nil {
			m.log = entry
		}
	}
}
