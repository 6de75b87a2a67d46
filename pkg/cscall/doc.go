// Package cscall реализует движок управления вызовами CS-домена
// (2G/3G) одного SIM-слота.
//
// Движок отслеживает одновременные ветви вызова (Connection) в карте с
// ключом по номеру, проверяет запрошенные переходы состояний по
// совокупному состоянию карты (hold/unhold/switch/conference/reject/
// hangup), и сверяет асинхронные отчеты модема о списке вызовов с
// локально отслеживаемыми ветвями (mark-and-sweep по ключу номера).
//
// Радио-слой, определение типа сети, детектор MMI-кодов и приемник
// диагностики — внешние участники за интерфейсами; все низкоуровневые
// запросы асинхронные, ответы модема приходят отдельным каналом
// отчетов через ReportCallsData.
//
// Экземпляр CSControl обслуживает один слот и сериализует доступ к
// карте ветвей собственным мьютексом.
package cscall
