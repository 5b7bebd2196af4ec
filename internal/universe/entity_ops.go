package universe

import (
	"errors"
	"maps"

	"go.uber.org/zap"
)

func (u *Universe) applyEntity(op EntityOperation) (EntityID, error) {
	var (
		e   *Entity
		err error
	)
	switch op.Kind {
	case EntityRegister:
		e, err = u.registerEntity(op.ID.Chunk, op.ID.Local, op.AutoID)
	case EntityUnregister:
		e, err = u.unregisterEntity(op.ID)
	case EntityLoadMetadata:
		e, err = u.loadEntityMetadata(op.ID, op.Metadata)
	case EntityUnloadMetadata:
		e, err = u.unloadEntityMetadata(op.ID)
	case EntityLoadData:
		e, err = u.loadEntityData(op.ID, op.Data)
	case EntityUnloadData:
		e, err = u.unloadEntityData(op.ID)
	case EntitySpawn:
		e, err = u.spawnEntity(op.ID)
	case EntityDespawn:
		e, err = u.despawnEntity(op.ID)
	case EntityCommandOp:
		e, err = u.commandEntity(op.ID, op.Command)
	default:
		err = ErrInvalidOperation
	}
	if err != nil {
		return EntityID{}, entityOpError(op.Kind, op.targetName(), err)
	}
	emit(u, EntityEvent{Kind: op.Kind, ID: e.id, Handle: e.handle})
	return e.id, nil
}

func (u *Universe) lookupEntity(id EntityID) (*Entity, error) {
	if !id.IsValid() {
		return nil, ErrInvalidChunkID
	}
	e, ok := u.hierarchy.EntityInfo(id)
	if !ok {
		return nil, ErrEntityNotRegistered
	}
	return e, nil
}

func (u *Universe) registerEntity(chunk ChunkID, local LocalEntityID, auto bool) (*Entity, error) {
	p, err := u.lookupParent(chunk)
	if err != nil {
		return nil, err
	}
	p.lock()
	defer p.unlock()

	if p.data == nil {
		return nil, ErrParentChunkDataNotLoaded
	}
	if auto {
		l, err := p.data.entityIDs.generate(func(l LocalEntityID) bool { _, ok := p.data.entities[l]; return ok })
		if err != nil {
			return nil, err
		}
		local = l
	}
	if _, dup := p.data.entities[local]; dup {
		return nil, ErrEntityAlreadyRegistered
	}

	id := NewEntityID(chunk, local)
	e := newEntity(id, u.host.CreateEntityHandle(id))
	p.data.entities[local] = e
	if err := u.hierarchy.InsertEntityInfo(chunk, local, e); err != nil {
		delete(p.data.entities, local)
		u.host.DestroyHandle(e.handle)
		return nil, err
	}
	return e, nil
}

func (u *Universe) unregisterEntity(id EntityID) (*Entity, error) {
	e, err := u.lookupEntity(id)
	if err != nil {
		return nil, err
	}
	p, err := u.lookupParent(id.Chunk)
	if err != nil {
		return nil, err
	}
	p.lock()
	defer p.unlock()
	e.lock()
	defer e.unlock()

	switch {
	case e.data != nil && e.data.run == Spawned:
		return nil, ErrEntityStillSpawned
	case e.data != nil:
		return nil, ErrEntityDataStillLoaded
	case e.stage == StageMetadataLoaded:
		return nil, ErrEntityMetadataStillLoaded
	}
	if p.data == nil || p.data.entities[id.Local] != e {
		return nil, ErrWrongParentChunk
	}
	delete(p.data.entities, id.Local)
	if err := u.hierarchy.RemoveEntityInfo(id); err != nil {
		p.data.entities[id.Local] = e
		return nil, err
	}
	if err := p.data.entityIDs.recycle(id.Local); err != nil {
		u.log.Debug("entity id already in pool", zap.Stringer("entity", id))
	}
	u.host.DestroyHandle(e.handle)
	return e, nil
}

func (u *Universe) loadEntityMetadata(id EntityID, meta EntityMetadata) (*Entity, error) {
	e, err := u.lookupEntity(id)
	if err != nil {
		return nil, err
	}
	e.lock()
	defer e.unlock()

	if e.stage != StageRegistered {
		return nil, ErrEntityMetadataAlreadyLoaded
	}
	e.meta = EntityMetadata{Name: meta.Name, Properties: maps.Clone(meta.Properties)}
	e.stage = StageMetadataLoaded
	return e, nil
}

func (u *Universe) unloadEntityMetadata(id EntityID) (*Entity, error) {
	e, err := u.lookupEntity(id)
	if err != nil {
		return nil, err
	}
	e.lock()
	defer e.unlock()

	switch e.stage {
	case StageRegistered:
		return nil, ErrEntityMetadataNotLoaded
	case StageDataLoaded:
		return nil, ErrEntityDataStillLoaded
	}
	e.meta = EntityMetadata{}
	e.stage = StageRegistered
	return e, nil
}

func (u *Universe) loadEntityData(id EntityID, data EntityData) (*Entity, error) {
	e, err := u.lookupEntity(id)
	if err != nil {
		return nil, err
	}
	e.lock()
	defer e.unlock()

	switch e.stage {
	case StageRegistered:
		return nil, ErrEntityMetadataNotLoaded
	case StageDataLoaded:
		return nil, ErrEntityDataAlreadyLoaded
	}
	e.data = &entityData{run: Despawned, properties: maps.Clone(data.Properties)}
	e.stage = StageDataLoaded
	return e, nil
}

func (u *Universe) unloadEntityData(id EntityID) (*Entity, error) {
	e, err := u.lookupEntity(id)
	if err != nil {
		return nil, err
	}
	e.lock()
	defer e.unlock()

	switch {
	case e.data == nil:
		return nil, ErrEntityDataNotLoaded
	case e.data.run == Spawned:
		return nil, ErrEntityStillSpawned
	}
	e.data = nil
	e.stage = StageMetadataLoaded
	return e, nil
}

func (u *Universe) spawnEntity(id EntityID) (*Entity, error) {
	e, err := u.lookupEntity(id)
	if err != nil {
		return nil, err
	}
	p, err := u.lookupParent(id.Chunk)
	if err != nil {
		return nil, err
	}
	p.lock()
	defer p.unlock()
	e.lock()
	defer e.unlock()

	switch {
	case e.data == nil:
		return nil, ErrEntityDataNotLoaded
	case p.data == nil || p.data.run != Spawned:
		return nil, ErrParentChunkNotSpawned
	case e.data.run == Spawned:
		return nil, ErrEntityAlreadySpawned
	}
	e.data.run = Spawned
	u.host.SetActive(e.handle, true)
	return e, nil
}

func (u *Universe) despawnEntity(id EntityID) (*Entity, error) {
	e, err := u.lookupEntity(id)
	if err != nil {
		return nil, err
	}
	e.lock()
	defer e.unlock()

	switch {
	case e.data == nil:
		return nil, ErrEntityDataNotLoaded
	case e.data.run == Despawned:
		return nil, ErrEntityAlreadyDespawned
	}
	e.data.run = Despawned
	u.host.SetActive(e.handle, false)
	return e, nil
}

// commandEntity runs cmd without holding the entity's lock; the writer lock
// keeps the entity spawned for the duration.
func (u *Universe) commandEntity(id EntityID, cmd EntityCommand) (*Entity, error) {
	if cmd == nil {
		return nil, ErrInvalidOperation
	}
	e, err := u.lookupEntity(id)
	if err != nil {
		return nil, err
	}
	if !e.isSpawned() {
		return nil, ErrEntityNotSpawned
	}
	if err := cmd(HostCommand{Entity: id, Handle: e.handle, Host: u.host}); err != nil {
		return nil, errors.Join(ErrEntityCommandFailed, err)
	}
	return e, nil
}
