package raft

// GetIndexAndTermOfLastEntry returns the index and term of the last entry in
// the log, or (0, 0) for an empty log.
func GetIndexAndTermOfLastEntry(log Log) (LogIndex, TermNo, error) {
	lastLogIndex, err := log.GetIndexOfLastEntry()
	if err != nil {
		return 0, 0, err
	}
	if lastLogIndex == 0 {
		return 0, 0, nil
	}
	lastLogTerm, err := log.GetTermAtIndex(lastLogIndex)
	if err != nil {
		return 0, 0, err
	}
	return lastLogIndex, lastLogTerm, nil
}
