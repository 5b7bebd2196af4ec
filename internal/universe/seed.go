package universe

import "github.com/l1jgo/universe/internal/data"

// SeedLayout enqueues the requests that bring l up: one chunk request per
// chunk in depth-first order, followed by one entity request for its
// entities, so every parent is loaded and spawned before its children are
// touched. onFailure receives every failed operation and may be nil.
// It returns the number of requests sent.
func (u *Universe) SeedLayout(l *data.Layout, onFailure func(error)) (int, error) {
	sent := 0
	var seed func(parent *ChunkID, spec *data.ChunkSpec) error
	seed = func(parent *ChunkID, spec *data.ChunkSpec) error {
		local, err := ParseLocalChunkID(spec.Local)
		if err != nil {
			return err
		}
		var id ChunkID
		var register ChunkOperation
		if parent == nil {
			id = RootChunkID(local)
			register = RegisterRootChunkOp(local)
		} else {
			id = ChildChunkID(*parent, local)
			register = RegisterChunkOp(*parent, local)
		}

		ops := []ChunkOperation{register}
		stage := data.StageOf(spec.Stage)
		if stage != data.StageRegistered {
			ops = append(ops, LoadChunkMetadataOp(id, ChunkMetadata{Name: spec.Name, Properties: spec.Metadata}))
		}
		if stage == data.StageData {
			ops = append(ops, LoadChunkDataOp(id, ChunkData{Leaf: spec.Leaf, Properties: spec.Properties}))
			if spec.Spawn {
				ops = append(ops, SpawnChunkOp(id))
			}
		}
		for i := range ops {
			ops[i].OnFailure = onFailure
		}
		if err := u.SendChunkOperationRequest(NewChunkOperationRequest(ops...)); err != nil {
			return err
		}
		sent++

		if len(spec.Entities) > 0 {
			var eops []EntityOperation
			for _, es := range spec.Entities {
				el, err := ParseLocalEntityID(es.Local)
				if err != nil {
					return err
				}
				eid := NewEntityID(id, el)
				eops = append(eops, RegisterEntityOp(eid))
				estage := data.StageOf(es.Stage)
				if estage != data.StageRegistered {
					eops = append(eops, LoadEntityMetadataOp(eid, EntityMetadata{Name: es.Name, Properties: es.Metadata}))
				}
				if estage == data.StageData {
					eops = append(eops, LoadEntityDataOp(eid, EntityData{Properties: es.Properties}))
					if es.Spawn {
						eops = append(eops, SpawnEntityOp(eid))
					}
				}
			}
			for i := range eops {
				eops[i].OnFailure = onFailure
			}
			if err := u.SendEntityOperationRequest(NewEntityOperationRequest(eops...)); err != nil {
				return err
			}
			sent++
		}

		for i := range spec.Chunks {
			if err := seed(&id, &spec.Chunks[i]); err != nil {
				return err
			}
		}
		return nil
	}

	for i := range l.Roots {
		if err := seed(nil, &l.Roots[i]); err != nil {
			return sent, err
		}
	}
	return sent, nil
}
