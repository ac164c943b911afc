package mocks

// MockSelector はテスト用の選択モック
type MockSelector struct {
	Index int
	Error error

	Calls      int
	Candidates []string
}

// Select は設定されたインデックスを返します
func (s *MockSelector) Select(title string, candidates []string) (int, error) {
	s.Calls++
	s.Candidates = candidates
	if s.Error != nil {
		return 0, s.Error
	}
	return s.Index, nil
}
