package errors

// permanentError marks a failure that will not succeed on retry.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }

func (p *permanentError) Unwrap() error { return p.err }

// MarkPermanent flags err so retry loops and the job worker stop retrying it.
func MarkPermanent(err error) error {
	if err == nil || IsPermanent(err) {
		return err
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked permanent.
// Unknown job types and ledger imbalances are always permanent.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var p *permanentError
	if As(err, &p) {
		return true
	}
	return HasCode(err, ErrUnknownJobType) || HasCode(err, ErrLedgerImbalance)
}
