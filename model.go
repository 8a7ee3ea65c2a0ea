package huffman

// Model is a reusable code trained on sample data. Inputs encoded with a
// model may only contain symbols that occurred in its training samples.
type Model struct {
	config Config
	freq   *FrequencyTable
	tree   *Tree
	codes  *CodeTable
}

// NewModel creates an empty model with the provided options.
func NewModel(opts ...Option) *Model {
	return &Model{config: newConfig(opts)}
}

// TrainModel trains a reusable model from sample inputs.
func TrainModel(samples [][]byte, opts ...Option) (*Model, error) {
	m := NewModel(opts...)
	if err := m.Train(samples); err != nil {
		return nil, err
	}
	return m, nil
}

// Train counts symbol frequencies across all samples and builds the code used
// by subsequent Encode calls. Samples with no bytes at all yield
// ErrEmptyAlphabet and leave the model unchanged.
func (m *Model) Train(samples [][]byte) error {
	freq := &FrequencyTable{}
	for _, s := range samples {
		if err := m.config.checkInput(s); err != nil {
			return err
		}
		freq.add(s)
	}
	tree, err := BuildTree(freq)
	if err != nil {
		return err
	}
	m.freq = freq
	m.tree = tree
	m.codes = GenerateCodes(tree)
	return nil
}

// Encode packs data with the trained code. A symbol that never occurred in
// the training samples yields an error wrapping ErrCodeTableMiss.
func (m *Model) Encode(data []byte) (*Archive, error) {
	if m.tree == nil {
		return nil, ErrUntrainedModel
	}
	if err := m.config.checkInput(data); err != nil {
		return nil, err
	}
	packed, err := Pack(data, m.codes)
	if err != nil {
		return nil, err
	}
	return newArchive(m.config, data, m.freq, m.tree, packed), nil
}

// Trained reports whether the model is ready for Encode.
func (m *Model) Trained() bool {
	return m.tree != nil
}

// Frequencies returns the training frequencies, or nil before training.
func (m *Model) Frequencies() *FrequencyTable { return m.freq }

// Tree returns the trained tree, or nil before training.
func (m *Model) Tree() *Tree { return m.tree }

// Codes returns the trained code table, or nil before training.
func (m *Model) Codes() *CodeTable { return m.codes }
