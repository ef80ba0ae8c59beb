package cmccl

// report.go gathers the per-phase timing records a collective run emits.
// A Reporter is created per run and passed in explicitly; its lifecycle is
// scoped to that run and nothing here touches process-global state.  Records
// stream to an optional structured logger as they are produced and can be
// serialized to yaml or json afterwards for external tooling.

import (
	"encoding/json"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// PhaseRecord describes one completed phase step of a collective run
type PhaseRecord struct {
	RunID     string  `json:"runid" yaml:"runid"`
	Algorithm string  `json:"algorithm" yaml:"algorithm"`
	Phase     string  `json:"phase" yaml:"phase"`
	Step      int     `json:"step" yaml:"step"`
	Start     float64 `json:"start" yaml:"start"`
	End       float64 `json:"end" yaml:"end"`
	Elapsed   float64 `json:"elapsed" yaml:"elapsed"`
}

// RunSummary condenses a finished run for reporting
type RunSummary struct {
	RunID       string  `json:"runid" yaml:"runid"`
	Algorithm   string  `json:"algorithm" yaml:"algorithm"`
	Topology    string  `json:"topology" yaml:"topology"`
	Workers     int     `json:"workers" yaml:"workers"`
	DataSize    int     `json:"datasize" yaml:"datasize"`
	BytesMoved  int     `json:"bytesmoved" yaml:"bytesmoved"`
	Elapsed     float64 `json:"elapsed" yaml:"elapsed"`
	EffectiveBw float64 `json:"effectivebw" yaml:"effectivebw"` // bytes per second
	MeanStep    float64 `json:"meanstep" yaml:"meanstep"`
	StddevStep  float64 `json:"stddevstep" yaml:"stddevstep"`
}

// Reporter accumulates the records of one collective run
type Reporter struct {
	RunID   string        `json:"runid" yaml:"runid"`
	Records []PhaseRecord `json:"records" yaml:"records"`

	log *logrus.Logger
}

// CreateReporter is a constructor.  The logger may be nil, in which case
// records are only accumulated, not streamed.
func CreateReporter(log *logrus.Logger) *Reporter {
	rpt := new(Reporter)
	rpt.RunID = uuid.NewString()
	rpt.Records = make([]PhaseRecord, 0)
	rpt.log = log
	return rpt
}

// AddPhase records the completion of one phase step and streams it to the
// attached logger, one structured line per record
func (rpt *Reporter) AddPhase(alg, phase string, step int, start, end float64) {
	rcd := PhaseRecord{
		RunID:     rpt.RunID,
		Algorithm: alg,
		Phase:     phase,
		Step:      step,
		Start:     start,
		End:       end,
		Elapsed:   end - start,
	}
	rpt.Records = append(rpt.Records, rcd)

	if rpt.log != nil {
		rpt.log.WithFields(logrus.Fields{
			"runid":     rcd.RunID,
			"algorithm": rcd.Algorithm,
			"phase":     rcd.Phase,
			"step":      rcd.Step,
			"elapsed":   rcd.Elapsed,
		}).Info("phase complete")
	}
}

// stepTimes pulls the per-step elapsed times out of the record list
func (rpt *Reporter) stepTimes() []float64 {
	times := make([]float64, 0, len(rpt.Records))
	for _, rcd := range rpt.Records {
		times = append(times, rcd.Elapsed)
	}
	return times
}

// Summarize derives a run summary from the accumulated records and the
// finished session
func (rpt *Reporter) Summarize(sess *Session) RunSummary {
	sum := RunSummary{
		RunID:      rpt.RunID,
		Algorithm:  sess.Alg,
		Topology:   sess.net.Topo.Name,
		Workers:    len(sess.workers),
		DataSize:   sess.dataSize,
		BytesMoved: sess.BytesMoved,
		Elapsed:    sess.Elapsed,
	}
	if sess.Elapsed > 0.0 {
		sum.EffectiveBw = float64(sess.BytesMoved) / sess.Elapsed
	}
	times := rpt.stepTimes()
	if len(times) > 0 {
		sum.MeanStep = stat.Mean(times, nil)
		sum.StddevStep = stat.StdDev(times, nil)
	}

	if rpt.log != nil {
		rpt.log.WithFields(logrus.Fields{
			"runid":       sum.RunID,
			"algorithm":   sum.Algorithm,
			"topology":    sum.Topology,
			"workers":     sum.Workers,
			"bytesmoved":  sum.BytesMoved,
			"elapsed":     sum.Elapsed,
			"effectivebw": sum.EffectiveBw,
		}).Info("run complete")
	}
	return sum
}

// WriteToFile stores the accumulated records to the named file.
// Serialization to json or to yaml is selected based on the file extension.
func (rpt *Reporter) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*rpt)
	} else {
		bytes, merr = json.MarshalIndent(*rpt, "", "\t")
	}
	if merr != nil {
		return merr
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		return cerr
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		f.Close()
		return werr
	}
	return f.Close()
}
