package universe

import (
	"maps"

	"go.uber.org/zap"
)

func (u *Universe) applyChunk(op ChunkOperation) (ChunkID, error) {
	var (
		c   *Chunk
		err error
	)
	switch op.Kind {
	case ChunkRegisterRoot:
		c, err = u.registerRootChunk(op.Local, op.AutoID)
	case ChunkRegister:
		c, err = u.registerChunk(op.Parent, op.Local, op.AutoID)
	case ChunkUnregister:
		c, err = u.unregisterChunk(op.ID)
	case ChunkLoadMetadata:
		c, err = u.loadChunkMetadata(op.ID, op.Metadata)
	case ChunkUnloadMetadata:
		c, err = u.unloadChunkMetadata(op.ID)
	case ChunkLoadData:
		c, err = u.loadChunkData(op.ID, op.Data)
	case ChunkUnloadData:
		c, err = u.unloadChunkData(op.ID)
	case ChunkSpawn:
		c, err = u.spawnChunk(op.ID)
	case ChunkDespawn:
		c, err = u.despawnChunk(op.ID)
	default:
		err = ErrInvalidOperation
	}
	if err != nil {
		return ChunkID{}, chunkOpError(op.Kind, op.targetName(), err)
	}
	emit(u, ChunkEvent{Kind: op.Kind, ID: c.id, Handle: c.handle})
	return c.id, nil
}

func (u *Universe) lookupChunk(id ChunkID) (*Chunk, error) {
	if !id.IsValid() {
		return nil, ErrInvalidChunkID
	}
	c, ok := u.hierarchy.ChunkInfo(id)
	if !ok {
		return nil, ErrChunkNotRegistered
	}
	return c, nil
}

func (u *Universe) lookupParent(id ChunkID) (*Chunk, error) {
	if !id.IsValid() {
		return nil, ErrInvalidChunkID
	}
	c, ok := u.hierarchy.ChunkInfo(id)
	if !ok {
		return nil, ErrParentChunkNotRegistered
	}
	return c, nil
}

func (u *Universe) registerRootChunk(local LocalChunkID, auto bool) (*Chunk, error) {
	u.mu.lock()
	defer u.mu.unlock()

	if auto {
		l, err := u.rootIDs.generate(func(l LocalChunkID) bool { _, ok := u.roots[l]; return ok })
		if err != nil {
			return nil, err
		}
		local = l
	}
	if _, dup := u.roots[local]; dup {
		return nil, ErrChunkAlreadyRegistered
	}

	id := RootChunkID(local)
	c := newChunk(id, u.host.CreateChunkHandle(id))
	u.roots[local] = c
	if err := u.hierarchy.InsertChunkInfo(nil, local, c); err != nil {
		delete(u.roots, local)
		u.host.DestroyHandle(c.handle)
		return nil, err
	}
	return c, nil
}

func (u *Universe) registerChunk(parent ChunkID, local LocalChunkID, auto bool) (*Chunk, error) {
	p, err := u.lookupParent(parent)
	if err != nil {
		return nil, err
	}
	p.lock()
	defer p.unlock()

	if p.data == nil {
		return nil, ErrParentChunkDataNotLoaded
	}
	if p.data.children == nil {
		return nil, ErrParentChunkNotAllowedToHaveChildChunks
	}
	if auto {
		l, err := p.data.chunkIDs.generate(func(l LocalChunkID) bool { _, ok := p.data.children[l]; return ok })
		if err != nil {
			return nil, err
		}
		local = l
	}
	if _, dup := p.data.children[local]; dup {
		return nil, ErrChunkAlreadyRegistered
	}

	id := ChildChunkID(parent, local)
	c := newChunk(id, u.host.CreateChunkHandle(id))
	p.data.children[local] = c
	if err := u.hierarchy.InsertChunkInfo(&parent, local, c); err != nil {
		delete(p.data.children, local)
		u.host.DestroyHandle(c.handle)
		return nil, err
	}
	return c, nil
}

// checkUnregister requires c to be back at StageRegistered.
func (c *Chunk) checkUnregister() error {
	switch {
	case c.data != nil && c.data.run == Spawned:
		return ErrChunkStillSpawned
	case c.data != nil:
		return ErrChunkDataStillLoaded
	case c.stage == StageMetadataLoaded:
		return ErrChunkMetadataStillLoaded
	}
	return nil
}

func (u *Universe) unregisterChunk(id ChunkID) (*Chunk, error) {
	c, err := u.lookupChunk(id)
	if err != nil {
		return nil, err
	}
	local := id.Local()

	if parentID, ok := id.Parent(); ok {
		p, err := u.lookupParent(parentID)
		if err != nil {
			return nil, err
		}
		p.lock()
		defer p.unlock()
		c.lock()
		defer c.unlock()

		if err := c.checkUnregister(); err != nil {
			return nil, err
		}
		if p.data == nil || p.data.children[local] != c {
			return nil, ErrWrongParentChunk
		}
		delete(p.data.children, local)
		if err := u.hierarchy.RemoveChunkInfo(id); err != nil {
			p.data.children[local] = c
			return nil, err
		}
		if err := p.data.chunkIDs.recycle(local); err != nil {
			u.log.Debug("chunk id already in pool", zap.Stringer("chunk", id))
		}
	} else {
		u.mu.lock()
		defer u.mu.unlock()
		c.lock()
		defer c.unlock()

		if err := c.checkUnregister(); err != nil {
			return nil, err
		}
		if u.roots[local] != c {
			return nil, ErrChunkNotRegistered
		}
		delete(u.roots, local)
		if err := u.hierarchy.RemoveChunkInfo(id); err != nil {
			u.roots[local] = c
			return nil, err
		}
		if err := u.rootIDs.recycle(local); err != nil {
			u.log.Debug("chunk id already in pool", zap.Stringer("chunk", id))
		}
	}

	u.host.DestroyHandle(c.handle)
	return c, nil
}

func (u *Universe) loadChunkMetadata(id ChunkID, meta ChunkMetadata) (*Chunk, error) {
	c, err := u.lookupChunk(id)
	if err != nil {
		return nil, err
	}
	c.lock()
	defer c.unlock()

	if c.stage != StageRegistered {
		return nil, ErrChunkMetadataAlreadyLoaded
	}
	c.meta = ChunkMetadata{Name: meta.Name, Properties: maps.Clone(meta.Properties)}
	c.stage = StageMetadataLoaded
	return c, nil
}

func (u *Universe) unloadChunkMetadata(id ChunkID) (*Chunk, error) {
	c, err := u.lookupChunk(id)
	if err != nil {
		return nil, err
	}
	c.lock()
	defer c.unlock()

	switch c.stage {
	case StageRegistered:
		return nil, ErrChunkMetadataNotLoaded
	case StageDataLoaded:
		return nil, ErrChunkDataStillLoaded
	}
	c.meta = ChunkMetadata{}
	c.stage = StageRegistered
	return c, nil
}

func (u *Universe) loadChunkData(id ChunkID, data ChunkData) (*Chunk, error) {
	c, err := u.lookupChunk(id)
	if err != nil {
		return nil, err
	}
	c.lock()
	defer c.unlock()

	switch c.stage {
	case StageRegistered:
		return nil, ErrChunkMetadataNotLoaded
	case StageDataLoaded:
		return nil, ErrChunkDataAlreadyLoaded
	}
	d := &chunkData{
		run:        Despawned,
		leaf:       data.Leaf,
		properties: maps.Clone(data.Properties),
		entities:   make(map[LocalEntityID]*Entity),
	}
	if !data.Leaf {
		d.children = make(map[LocalChunkID]*Chunk)
	}
	c.data = d
	c.stage = StageDataLoaded
	if err := u.hierarchy.SetChunkInfoData(id, true, data.Leaf); err != nil {
		c.data = nil
		c.stage = StageMetadataLoaded
		return nil, err
	}
	return c, nil
}

func (u *Universe) unloadChunkData(id ChunkID) (*Chunk, error) {
	c, err := u.lookupChunk(id)
	if err != nil {
		return nil, err
	}
	c.lock()
	defer c.unlock()

	switch {
	case c.data == nil:
		return nil, ErrChunkDataNotLoaded
	case c.data.run == Spawned:
		return nil, ErrChunkStillSpawned
	case len(c.data.children) > 0:
		return nil, ErrChildChunksStillRegistered
	case len(c.data.entities) > 0:
		return nil, ErrEntitiesStillRegistered
	}
	if err := u.hierarchy.SetChunkInfoData(id, false, false); err != nil {
		return nil, err
	}
	c.data = nil
	c.stage = StageMetadataLoaded
	return c, nil
}

// spawnChunk treats a root chunk's parent as always spawned.
func (u *Universe) spawnChunk(id ChunkID) (*Chunk, error) {
	c, err := u.lookupChunk(id)
	if err != nil {
		return nil, err
	}

	if parentID, ok := id.Parent(); ok {
		p, err := u.lookupParent(parentID)
		if err != nil {
			return nil, err
		}
		p.lock()
		defer p.unlock()
		c.lock()
		defer c.unlock()

		if c.data == nil {
			return nil, ErrChunkDataNotLoaded
		}
		if p.data == nil || p.data.run != Spawned {
			return nil, ErrParentChunkNotSpawned
		}
	} else {
		c.lock()
		defer c.unlock()

		if c.data == nil {
			return nil, ErrChunkDataNotLoaded
		}
	}

	if c.data.run == Spawned {
		return nil, ErrChunkAlreadySpawned
	}
	c.data.run = Spawned
	u.host.SetActive(c.handle, true)
	return c, nil
}

func (u *Universe) despawnChunk(id ChunkID) (*Chunk, error) {
	c, err := u.lookupChunk(id)
	if err != nil {
		return nil, err
	}
	c.lock()
	defer c.unlock()

	if c.data == nil {
		return nil, ErrChunkDataNotLoaded
	}
	if c.data.run == Despawned {
		return nil, ErrChunkAlreadyDespawned
	}
	for _, child := range c.data.children {
		if child.isSpawned() {
			return nil, ErrChildChunksStillSpawned
		}
	}
	for _, e := range c.data.entities {
		if e.isSpawned() {
			return nil, ErrEntitiesStillSpawned
		}
	}
	c.data.run = Despawned
	u.host.SetActive(c.handle, false)
	return c, nil
}
