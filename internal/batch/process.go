package batch

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/polifund/fundscan/constants"
	"github.com/polifund/fundscan/internal/annotate"
	"github.com/polifund/fundscan/internal/common"
)

// fileOutput is everything one file contributed to the run.
type fileOutput struct {
	processed   bool
	skipped     bool
	pages       int
	regions     int
	annotations int
	rows        []keyedRow
}

// processFiles fans files out to a bounded worker pool. Results land in
// a slice indexed by file position, so worker scheduling never changes
// what a file produced. Cancellation stops feeding; started files finish.
func (o *Orchestrator) processFiles(ctx context.Context, files []string, workers int, aiColumns []string) []fileOutput {
	outputs := make([]fileOutput, len(files))
	if len(files) == 0 {
		return outputs
	}

	if workers == 1 {
		for i, path := range files {
			if ctx.Err() != nil {
				break
			}
			outputs[i] = o.processOne(ctx, path, aiColumns)
		}
		return outputs
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			o.logger.Debug("batch.worker.start", "worker_id", workerID)
			for i := range jobs {
				outputs[i] = o.processOne(ctx, files[i], aiColumns)
			}
			o.logger.Debug("batch.worker.stop", "worker_id", workerID)
		}(w)
	}

feed:
	for i := range files {
		o.logger.Debug("batch.file.status",
			"file", filepath.Base(files[i]), "status", constants.FileStatusQueued)
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return outputs
}

// processOne runs the OCR, extraction, and annotation stages for a
// single file. All failures are contained here: a skipped file or a
// failed crop never stops the batch. The request id set on ctx ties
// the OCR and vision calls for this file together in the logs.
func (o *Orchestrator) processOne(ctx context.Context, path string, aiColumns []string) fileOutput {
	out := fileOutput{processed: true}
	fileName := filepath.Base(path)
	ctx = common.WithRequestID(ctx, uuid.New().String())

	o.logger.Debug("batch.file.status", "file", fileName, "status", constants.FileStatusRunning)

	fr := o.processor.ProcessFile(ctx, path)
	if fr.Err != nil {
		o.logger.Warn("batch.file.skipped",
			"file", fileName, "status", constants.FileStatusSkipped, "error", fr.Err)
		out.skipped = true
		return out
	}
	o.logger.Debug("batch.file.status",
		"file", fileName, "status", constants.FileStatusOCROK, "pages", len(fr.Records))

	for _, rec := range fr.Records {
		out.pages++

		regions := o.extractor.Extract(rec)
		if len(regions) == 0 {
			out.rows = append(out.rows, keyedRow{
				folder: rec.FolderName,
				file:   rec.FileName,
				page:   rec.Page,
				cells:  buildRow(rec, o.def.Fields, nil, nil, aiColumns),
			})
			continue
		}

		for _, region := range regions {
			out.regions++

			var ann *annotate.Annotation
			if o.annotator != nil && o.annotator.Enabled() {
				crop, err := o.cropper.CropJPEG(ctx, path, rec, region)
				if err != nil {
					o.logger.Warn("batch.crop.error",
						"file", rec.FileName, "page", rec.Page, "receipt_index", region.Index,
						"error", err)
				} else {
					ann = o.annotator.Annotate(ctx, region, crop)
					if ann != nil {
						out.annotations++
					}
				}
			}

			out.rows = append(out.rows, keyedRow{
				folder: rec.FolderName,
				file:   rec.FileName,
				page:   rec.Page,
				region: region.Index,
				cells:  buildRow(rec, o.def.Fields, &region, ann, aiColumns),
			})
		}
	}

	if out.annotations > 0 {
		o.logger.Debug("batch.file.status",
			"file", fileName, "status", constants.FileStatusAnnotated, "annotations", out.annotations)
	}
	o.logger.Debug("batch.file.status",
		"file", fileName, "status", constants.FileStatusDone, "rows", len(out.rows))
	return out
}
