package master

// placementIndex is the non-owning file-id <-> worker-id relation: it
// holds references only, never a File or Worker record itself, and is
// always mutated in the same critical section as whichever owning
// structure (InodeStore or workerRegistry) triggered the change.
type placementIndex struct {
	fileToWorkers map[int32]map[int32]struct{}
	workerToFiles map[int32]map[int32]struct{}
}

func newPlacementIndex() *placementIndex {
	return &placementIndex{
		fileToWorkers: make(map[int32]map[int32]struct{}),
		workerToFiles: make(map[int32]map[int32]struct{}),
	}
}

func (p *placementIndex) add(fileID, workerID int32) {
	if p.fileToWorkers[fileID] == nil {
		p.fileToWorkers[fileID] = make(map[int32]struct{})
	}
	p.fileToWorkers[fileID][workerID] = struct{}{}

	if p.workerToFiles[workerID] == nil {
		p.workerToFiles[workerID] = make(map[int32]struct{})
	}
	p.workerToFiles[workerID][fileID] = struct{}{}
}

func (p *placementIndex) removeFile(fileID, workerID int32) {
	if workers, ok := p.fileToWorkers[fileID]; ok {
		delete(workers, workerID)
		if len(workers) == 0 {
			delete(p.fileToWorkers, fileID)
		}
	}
	if files, ok := p.workerToFiles[workerID]; ok {
		delete(files, fileID)
		if len(files) == 0 {
			delete(p.workerToFiles, workerID)
		}
	}
}

// removeFileEverywhere drops fileID from every worker it was placed on
// (used when a file is deleted from the namespace).
func (p *placementIndex) removeFileEverywhere(fileID int32) {
	for workerID := range p.fileToWorkers[fileID] {
		if files, ok := p.workerToFiles[workerID]; ok {
			delete(files, fileID)
			if len(files) == 0 {
				delete(p.workerToFiles, workerID)
			}
		}
	}
	delete(p.fileToWorkers, fileID)
}

// removeWorker drops every placement contribution of workerID (used
// when a worker is deregistered or times out).
func (p *placementIndex) removeWorker(workerID int32) {
	for fileID := range p.workerToFiles[workerID] {
		if workers, ok := p.fileToWorkers[fileID]; ok {
			delete(workers, workerID)
			if len(workers) == 0 {
				delete(p.fileToWorkers, fileID)
			}
		}
	}
	delete(p.workerToFiles, workerID)
}

// reconcileWorker replaces workerID's declared resident set to exactly
// match files, adding and removing placement edges as needed. Used at
// registration time to reconcile the placement index against the
// worker's declared resident-file list.
func (p *placementIndex) reconcileWorker(workerID int32, files []int32) {
	want := make(map[int32]struct{}, len(files))
	for _, id := range files {
		want[id] = struct{}{}
	}

	for existing := range p.workerToFiles[workerID] {
		if _, keep := want[existing]; !keep {
			p.removeFile(existing, workerID)
		}
	}
	for id := range want {
		p.add(id, workerID)
	}
}

// workersForFile returns the ids of workers currently holding fileID.
func (p *placementIndex) workersForFile(fileID int32) []int32 {
	workers := p.fileToWorkers[fileID]
	out := make([]int32, 0, len(workers))
	for id := range workers {
		out = append(out, id)
	}
	return out
}

// filesForWorker returns the ids of files currently placed on workerID.
func (p *placementIndex) filesForWorker(workerID int32) []int32 {
	files := p.workerToFiles[workerID]
	out := make([]int32, 0, len(files))
	for id := range files {
		out = append(out, id)
	}
	return out
}
