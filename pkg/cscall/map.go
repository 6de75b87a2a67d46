package cscall

// connectionMap коллекция ветвей одного слота с ключом по номеру.
// Принадлежит ровно одному CSControl и мутируется только под его
// мьютексом, поэтому собственной синхронизации не имеет.
type connectionMap struct {
	conns map[string]*Connection
}

func newConnectionMap() *connectionMap {
	return &connectionMap{
		conns: make(map[string]*Connection),
	}
}

// Get возвращает ветвь по номеру
func (m *connectionMap) Get(number string) (*Connection, bool) {
	conn, ok := m.conns[number]
	return conn, ok
}

// Put вставляет или заменяет ветвь под ключом number
func (m *connectionMap) Put(number string, conn *Connection) {
	m.conns[number] = conn
}

// Delete удаляет ветвь по номеру
func (m *connectionMap) Delete(number string) {
	delete(m.conns, number)
}

// Len возвращает число живых ветвей
func (m *connectionMap) Len() int {
	return len(m.conns)
}

// Empty возвращает true для пустой карты
func (m *connectionMap) Empty() bool {
	return len(m.conns) == 0
}

// Clear опустошает карту
func (m *connectionMap) Clear() {
	m.conns = make(map[string]*Connection)
}

// Find двухступенчатый поиск ветви: сперва по номеру, затем по индексу
// модема. Порядок фиксирован.
func (m *connectionMap) Find(number string, index int32) (*Connection, bool) {
	if conn, ok := m.conns[number]; ok {
		return conn, true
	}
	for _, conn := range m.conns {
		if conn.Index() == index {
			return conn, true
		}
	}
	return nil, false
}

// HasState возвращает true, если хотя бы одна ветвь в заданном состоянии
func (m *connectionMap) HasState(state TelCallState) bool {
	for _, conn := range m.conns {
		if conn.Status() == state {
			return true
		}
	}
	return false
}

// FindState возвращает первую ветвь в заданном состоянии
func (m *connectionMap) FindState(state TelCallState) (*Connection, bool) {
	for _, conn := range m.conns {
		if conn.Status() == state {
			return conn, true
		}
	}
	return nil, false
}

// Range обходит все ветви, пока fn возвращает true
func (m *connectionMap) Range(fn func(number string, conn *Connection) bool) {
	for number, conn := range m.conns {
		if !fn(number, conn) {
			return
		}
	}
}
